// Package service contains the application services that orchestrate
// document storage, blob handling and pipeline messaging across the
// store, blob and messaging packages.
package service
