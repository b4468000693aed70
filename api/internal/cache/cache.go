// Package cache stores web-knowledge digests keyed by test name.
//
// Keys are matched on the exact test-name string: "CBC" and "Complete Blood
// Count" are distinct entries. Writes are last-write-wins; concurrent
// requests for the same uncached test may both compute and store a digest.
package cache

import (
	"context"
	"errors"
)

// Digest is a bounded-length summary of web knowledge about a test.
type Digest struct {
	TestName    string
	SummaryText string
}

// ErrNotFound is returned by Get when no digest exists for the test name.
var ErrNotFound = errors.New("digest not found")

// Store is the get/put-by-key surface of the digest cache.
type Store interface {
	Get(ctx context.Context, testName string) (Digest, error)
	Put(ctx context.Context, d Digest) error
}
