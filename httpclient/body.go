package httpclient

import (
	"context"
	"io"
	"sync/atomic"
)

// cancelOnCloseBody releases an attempt's timeout context once the response
// body has been consumed or closed, so the timeout keeps covering the body
// read without leaking the timer.
type cancelOnCloseBody struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	done   atomic.Bool
}

func newCancelOnCloseBody(body io.ReadCloser, cancel context.CancelFunc) io.ReadCloser {
	if body == nil {
		cancel()
		return nil
	}
	return &cancelOnCloseBody{body: body, cancel: cancel}
}

func (b *cancelOnCloseBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err == io.EOF {
		b.release()
	}
	return n, err
}

func (b *cancelOnCloseBody) Close() error {
	err := b.body.Close()
	b.release()
	return err
}

func (b *cancelOnCloseBody) release() {
	if b.done.CompareAndSwap(false, true) {
		b.cancel()
	}
}
