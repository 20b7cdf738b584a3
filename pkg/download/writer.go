package download

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// ProgressSink is notified after every chunk written. Advance must not block.
type ProgressSink interface {
	Advance(n int64)
}

// Session is the state of one download owned by the OrderedWriter.
type Session struct {
	Dest        io.WriteSeeker
	Expected    int64
	EnvelopeLen int64
	Downloaded  int64
}

// OrderedWriter is the single consumer of the queue and the only writer of
// the destination. Chunks may arrive in any order; each is written at its
// own offset behind the envelope.
type OrderedWriter struct {
	session  Session
	envelope []byte
	progress ProgressSink
	written  coverage
}

func NewOrderedWriter(dest io.WriteSeeker, expected int64, envelope []byte, progress ProgressSink) *OrderedWriter {
	return &OrderedWriter{
		session: Session{
			Dest:        dest,
			Expected:    expected,
			EnvelopeLen: int64(len(envelope)),
		},
		envelope: envelope,
		progress: progress,
	}
}

// Drain writes the envelope, then consumes queue until exactly Expected bytes
// have been written. The first *FetchError aborts the download; chunks still
// queued behind it are not written.
func (w *OrderedWriter) Drain(ctx context.Context, queue <-chan QueueItem) error {
	if err := w.writeAt(0, w.envelope); err != nil {
		return &DownloadError{Cause: fmt.Errorf("error writing envelope: %w", err)}
	}

	for w.session.Downloaded < w.session.Expected {
		select {
		case <-ctx.Done():
			return &DownloadError{Cause: ctx.Err()}
		case item, ok := <-queue:
			if !ok {
				return &DownloadError{Cause: ErrQueueClosed}
			}
			switch it := item.(type) {
			case *FetchError:
				return &DownloadError{Cause: it}
			case ChunkResult:
				if err := w.writeChunk(it); err != nil {
					return &DownloadError{Cause: err}
				}
			default:
				return &DownloadError{Cause: fmt.Errorf("unexpected queue item %T", item)}
			}
		}
	}

	if w.session.Downloaded != w.session.Expected {
		return &DownloadError{Cause: fmt.Errorf("wrote %d bytes, expected %d", w.session.Downloaded, w.session.Expected)}
	}
	return nil
}

// Downloaded reports the number of payload bytes written so far.
func (w *OrderedWriter) Downloaded() int64 {
	return w.session.Downloaded
}

func (w *OrderedWriter) writeChunk(chunk ChunkResult) error {
	end := chunk.Offset + int64(len(chunk.Data))
	if chunk.Offset < 0 || end > w.session.Expected {
		return fmt.Errorf("%w: offset %d, length %d, file size %d", ErrOffsetOutOfRange, chunk.Offset, len(chunk.Data), w.session.Expected)
	}
	if !w.written.add(chunk.Offset, end) {
		return fmt.Errorf("%w: offset %d, length %d", ErrOverlappingChunk, chunk.Offset, len(chunk.Data))
	}
	if err := w.writeAt(w.session.EnvelopeLen+chunk.Offset, chunk.Data); err != nil {
		return fmt.Errorf("error writing chunk at offset %d: %w", chunk.Offset, err)
	}
	w.session.Downloaded += int64(len(chunk.Data))
	if w.progress != nil {
		w.progress.Advance(int64(len(chunk.Data)))
	}
	return nil
}

func (w *OrderedWriter) writeAt(offset int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := w.session.Dest.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := w.session.Dest.Write(data)
	return err
}

// coverage is the set of byte ranges written so far, kept sorted by start.
type coverage []span

type span struct{ start, end int64 }

// add records [start, end) unless it intersects a range already present.
func (c *coverage) add(start, end int64) bool {
	if start == end {
		return true
	}
	spans := *c
	i := sort.Search(len(spans), func(i int) bool { return spans[i].start >= start })
	if i < len(spans) && spans[i].start < end {
		return false
	}
	if i > 0 && spans[i-1].end > start {
		return false
	}
	spans = append(spans, span{})
	copy(spans[i+1:], spans[i:])
	spans[i] = span{start: start, end: end}
	*c = spans
	return true
}
