package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/docpipe/internal/messaging"
	"github.com/phrazzld/docpipe/internal/pipeline"
)

// failAfterPublisher records publishes and fails from the nth call on.
type failAfterPublisher struct {
	published map[string][]byte
	failAfter int // 0 means never fail
	calls     int
}

func (p *failAfterPublisher) Publish(_ context.Context, queue string, body []byte) error {
	p.calls++
	if p.failAfter > 0 && p.calls >= p.failAfter {
		return errors.New("broker gone")
	}
	if p.published == nil {
		p.published = make(map[string][]byte)
	}
	p.published[queue] = body
	return nil
}

func (p *failAfterPublisher) PublishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, queue, body)
}

func testResultBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(pipeline.ExtractionResult{
		ID:   uuid.New(),
		Name: "doc.txt",
		Text: "extracted text",
	})
	require.NoError(t, err)
	return body
}

func TestHandleForwardsVerbatimToBothQueues(t *testing.T) {
	t.Parallel()

	pub := &failAfterPublisher{}
	stage := NewStage(pub, "summarize.in", "index.in", slog.Default())
	body := testResultBody(t)

	outcome := stage.Handle(context.Background(), body)

	assert.Equal(t, messaging.StatusProcessed, outcome.Status)
	assert.Equal(t, body, pub.published["summarize.in"], "summarize branch must receive the original bytes")
	assert.Equal(t, body, pub.published["index.in"], "index branch must receive the original bytes")
}

func TestHandleFirstPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &failAfterPublisher{failAfter: 1}
	stage := NewStage(pub, "summarize.in", "index.in", slog.Default())

	outcome := stage.Handle(context.Background(), testResultBody(t))

	assert.Equal(t, messaging.StatusFailedTransient, outcome.Status)
	assert.Empty(t, pub.published)
}

func TestHandleSecondPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &failAfterPublisher{failAfter: 2}
	stage := NewStage(pub, "summarize.in", "index.in", slog.Default())

	outcome := stage.Handle(context.Background(), testResultBody(t))

	// The first branch already got the message; the outcome still
	// reports failure so the whole fan-out is retried, relying on
	// downstream idempotency to absorb the duplicate.
	assert.Equal(t, messaging.StatusFailedTransient, outcome.Status)
	assert.Contains(t, pub.published, "summarize.in")
	assert.NotContains(t, pub.published, "index.in")
}

func TestHandleMalformedPayloadIsPermanent(t *testing.T) {
	t.Parallel()

	pub := &failAfterPublisher{}
	stage := NewStage(pub, "summarize.in", "index.in", slog.Default())

	outcome := stage.Handle(context.Background(), []byte("}{"))

	assert.Equal(t, messaging.StatusFailedPermanent, outcome.Status)
	assert.Empty(t, pub.published)
}
