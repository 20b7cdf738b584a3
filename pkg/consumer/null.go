package consumer

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("negative offset")

// NullWriter discards everything. Useful for measuring throughput.
type NullWriter struct{}

var _ Consumer = &NullWriter{}

func (NullWriter) Open(string) (Destination, error) {
	return &nullDestination{}, nil
}

func (NullWriter) EnableOverwrite() {}

func (NullWriter) Discard(string) error { return nil }

// nullDestination tracks the write position and the furthest byte written.
type nullDestination struct {
	pos  int64
	size int64
}

func (d *nullDestination) Write(p []byte) (int, error) {
	d.pos += int64(len(p))
	if d.pos > d.size {
		d.size = d.pos
	}
	return len(p), nil
}

func (d *nullDestination) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = d.pos + offset
	case io.SeekEnd:
		abs = d.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errNegativeOffset
	}
	d.pos = abs
	return abs, nil
}

func (d *nullDestination) Close() error { return nil }
