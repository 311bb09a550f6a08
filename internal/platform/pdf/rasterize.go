// Package pdf converts PDF documents into per-page images for OCR.
// Validation uses pdfcpu; rendering shells out to Ghostscript, which
// produces considerably better rasters for scanned documents.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/phrazzld/docpipe/internal/config"
)

// ErrNotAPDF is returned when the input file cannot be parsed as a PDF.
var ErrNotAPDF = errors.New("not a valid PDF")

// GhostscriptRasterizer renders PDF pages to PNG images using an
// external Ghostscript binary.
type GhostscriptRasterizer struct {
	binary string
	dpi    int
}

// NewGhostscriptRasterizer creates a rasterizer using the binary and
// resolution from cfg.
func NewGhostscriptRasterizer(cfg config.ExtractionConfig) *GhostscriptRasterizer {
	return &GhostscriptRasterizer{
		binary: cfg.GhostscriptPath,
		dpi:    cfg.RasterDPI,
	}
}

// Rasterize validates the PDF, renders one PNG per page into outDir
// and returns the page image paths in page order.
func (r *GhostscriptRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAPDF, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: zero pages", ErrNotAPDF)
	}

	outPattern := filepath.Join(outDir, "page-%03d.png")
	cmd := exec.CommandContext(ctx, r.binary,
		"-dNOPAUSE",
		"-dBATCH",
		"-sDEVICE=png16m",
		"-r"+strconv.Itoa(r.dpi),
		"-sOutputFile="+outPattern,
		pdfPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ghostscript failed: %w (output: %s)", err, out)
	}

	pages, err := filepath.Glob(filepath.Join(outDir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list page images: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("ghostscript produced no page images")
	}
	sort.Strings(pages)

	return pages, nil
}
