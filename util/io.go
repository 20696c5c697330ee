package util

import (
	"io"
)

// WriteNoopCloser implements a no-op io.Closer for an io.Writer.
type WriteNoopCloser struct {
	io.Writer
}

func (w *WriteNoopCloser) Close() error {
	return nil
}

// ChainCloser makes sure all the close functions are called exactly once in order and returns the first error.
//
// The order assumes the first close function is the most important, e.g. closing a tar.Writer before the compressor
// it writes to.
func ChainCloser(fn1 func() error, fn2 func() error, fns ...func() error) func() error {
	return func() error {
		err := fn1()

		for _, fn := range append([]func() error{fn2}, fns...) {
			if err2 := fn(); err2 != nil && err == nil {
				err = err2
			}
		}

		return err
	}
}
