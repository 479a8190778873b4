package progress

import (
	"io"
	"sync/atomic"
)

// Writer wraps an io.Writer and counts the bytes passed through it. The
// transfer pipe threads one of these between send and receive so the executor
// can report how much data each plan step actually moved.
type Writer struct {
	w io.Writer
	n atomic.Int64
}

// NewWriter wraps w in a counting Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (p *Writer) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.n.Add(int64(n))
	}
	return n, err
}

// Count returns the number of bytes written so far. Safe to call while a copy
// is still in flight.
func (p *Writer) Count() int64 {
	return p.n.Load()
}
