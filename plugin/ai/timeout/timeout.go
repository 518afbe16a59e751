// Package timeout defines centralized timeout constants and the retry policy
// for calls that leave the process.
package timeout

import (
	"context"
	"time"
)

const (
	// LLMTimeout is the timeout for a single LLM completion request.
	LLMTimeout = 20 * time.Second

	// EmbeddingTimeout is the timeout for embedding generation.
	EmbeddingTimeout = 30 * time.Second

	// IndexQueryTimeout is the timeout for a single vector index query.
	IndexQueryTimeout = 10 * time.Second

	// IndexWriteTimeout is the timeout for vector index upsert/remove.
	IndexWriteTimeout = 15 * time.Second

	// TranscribeTimeout is the timeout for audio transcription.
	TranscribeTimeout = 60 * time.Second
)

// Do runs fn with an independent deadline and a single retry with no backoff.
// The second attempt is skipped when the parent context is already done, so a
// caller-level cancellation never triggers a retry.
func Do(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return fn(attemptCtx)
	}

	err := attempt()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return attempt()
}
