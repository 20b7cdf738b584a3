package download

import (
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultPartSize is used when Options.PartSize is zero.
const DefaultPartSize = 16 * humanize.MiByte

type Options struct {
	// Maximum number of parts fetched concurrently. If set to zero,
	// GOMAXPROCS*4 will be used.
	MaxConcurrency int

	// Size of each part in bytes. If set to zero, 16 MiB will be used.
	PartSize int64

	// Number of fetched parts that may wait for the writer. If set to
	// zero, MaxConcurrency is used.
	QueueDepth int

	// Semaphore, if set, is shared with other downloads so that the
	// concurrency limit applies across all of them. MaxConcurrency must
	// match its weight.
	Semaphore Semaphore

	// ProgressInterval is passed on to the progress reporter. Negative
	// disables progress logging.
	ProgressInterval time.Duration
}

func (o Options) maxConcurrency() int {
	if o.MaxConcurrency <= 0 {
		return runtime.GOMAXPROCS(0) * 4
	}
	return o.MaxConcurrency
}

func (o Options) partSize() int64 {
	if o.PartSize <= 0 {
		return DefaultPartSize
	}
	return o.PartSize
}

func (o Options) queueDepth() int {
	if o.QueueDepth <= 0 {
		return o.maxConcurrency()
	}
	return o.QueueDepth
}
