package ai

import (
	"context"

	"github.com/vpr16/jobminer/internal/retry"
)

// Provider sends an instruction turn and an input turn to a text-generation
// service and returns the first completion's raw text.
type Provider interface {
	Complete(ctx context.Context, instruction, input string) (string, error)
}

// RetryProvider retries transient provider failures (network errors, 429, 5xx).
type RetryProvider struct {
	inner   Provider
	retrier *retry.Retrier
}

// NewRetryProvider wraps inner with bounded retry.
func NewRetryProvider(inner Provider, retrier *retry.Retrier) *RetryProvider {
	return &RetryProvider{inner: inner, retrier: retrier}
}

func (p *RetryProvider) Complete(ctx context.Context, instruction, input string) (string, error) {
	var out string
	err := p.retrier.Do(ctx, "llm complete", func(ctx context.Context) error {
		var err error
		out, err = p.inner.Complete(ctx, instruction, input)
		return err
	})
	return out, err
}
