package linear

import "context"

// RetryingTransport runs every call of the wrapped transport under a Retrier.
// Mutations are retried too, so they must be idempotent on the server.
type RetryingTransport struct {
	next    Transport
	retrier *Retrier
}

// NewRetryingTransport wraps next.
func NewRetryingTransport(next Transport, retrier *Retrier) *RetryingTransport {
	return &RetryingTransport{next: next, retrier: retrier}
}

// Query implements Querier.
func (t *RetryingTransport) Query(ctx context.Context, document string, variables map[string]any) (any, error) {
	return WithRetry(ctx, t.retrier, func(ctx context.Context) (any, error) {
		return t.next.Query(ctx, document, variables)
	})
}

// Mutate implements Mutator.
func (t *RetryingTransport) Mutate(ctx context.Context, document string, variables map[string]any) (any, error) {
	return WithRetry(ctx, t.retrier, func(ctx context.Context) (any, error) {
		return t.next.Mutate(ctx, document, variables)
	})
}

// FetchBytes implements ByteFetcher.
func (t *RetryingTransport) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return WithRetry(ctx, t.retrier, func(ctx context.Context) ([]byte, error) {
		return t.next.FetchBytes(ctx, url)
	})
}
