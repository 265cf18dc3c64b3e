package service

import "context"

// Result is the outcome of a domain read.
//
// When Fallback is true, Data is synthetic and Err still holds the failure
// that caused the substitution. A fallback is never a success: callers that
// care must check Fallback or OK, not just Err.
type Result[T any] struct {
	Data     T
	Fallback bool
	Err      error
}

// OK reports whether Data came from the backend.
func (r Result[T]) OK() bool {
	return r.Err == nil && !r.Fallback
}

// Resolve builds the Result of a read. On failure the synthetic data from
// fallback replaces the missing payload, unless fallback is nil or ctx has
// ended (nobody is waiting for a substitute).
func Resolve[T any](ctx context.Context, data T, err error, fallback func() T) Result[T] {
	if err == nil {
		return Result[T]{Data: data}
	}
	if fallback == nil || ctx.Err() != nil {
		return Result[T]{Err: err}
	}
	return Result[T]{Data: fallback(), Fallback: true, Err: err}
}

// GetJSON is Get followed by Decode.
func GetJSON[T any](ctx context.Context, b *Base, endpoint string, opts ...CallOption) (T, error) {
	body, err := b.Get(ctx, endpoint, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](body)
}
