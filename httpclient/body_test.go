package httpclient

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOnCloseBody(t *testing.T) {
	tests := []struct {
		name    string
		consume func(io.ReadCloser)
	}{
		{
			name:    "given body read to EOF, then releases context",
			consume: func(b io.ReadCloser) { _, _ = io.ReadAll(b) },
		},
		{
			name:    "given body closed early, then releases context",
			consume: func(b io.ReadCloser) { _ = b.Close() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			body := newCancelOnCloseBody(io.NopCloser(strings.NewReader("data")), cancel)

			require.NoError(t, ctx.Err())
			tt.consume(body)
			assert.ErrorIs(t, ctx.Err(), context.Canceled)

			// Closing again is harmless.
			assert.NoError(t, body.Close())
		})
	}
}

func TestCancelOnCloseBody_NilBody(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	assert.Nil(t, newCancelOnCloseBody(nil, cancel))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
