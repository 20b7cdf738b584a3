package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/replicate/rangefetch/pkg/logging"
)

const DefaultInterval = 2 * time.Second

// Options configures the progress reporter.
type Options struct {
	// Total is the number of bytes expected.
	Total int64
	// Label identifies the download in log lines.
	Label string
	// Interval is how often progress is logged. Zero uses DefaultInterval,
	// a negative value disables periodic logging.
	Interval time.Duration
	Logger   *zerolog.Logger
}

// Reporter accumulates written bytes and logs them periodically from its own
// goroutine, so Advance never blocks the writer.
type Reporter struct {
	opts    Options
	logger  zerolog.Logger
	written atomic.Int64

	startTime time.Time
	started   atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func NewReporter(opts Options) *Reporter {
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	logger := logging.GetLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Reporter{
		opts:   opts,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Advance records n more bytes written. Negative values are ignored so the
// reported count only ever grows.
func (r *Reporter) Advance(n int64) {
	if n <= 0 {
		return
	}
	r.written.Add(n)
}

func (r *Reporter) Written() int64 {
	return r.written.Load()
}

// Percent is the share of Total written so far, 100 for an empty download.
func (r *Reporter) Percent() float64 {
	if r.opts.Total <= 0 {
		return 100
	}
	return float64(r.written.Load()) / float64(r.opts.Total) * 100
}

// Start launches the logging loop. It ends on Stop or when ctx is done.
func (r *Reporter) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.startTime = time.Now()
	if r.opts.Interval < 0 {
		close(r.done)
		return
	}
	go r.loop(ctx)
}

// Stop ends the logging loop and waits for it to exit.
func (r *Reporter) Stop() {
	if !r.started.Load() {
		return
	}
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	<-r.done
}

func (r *Reporter) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	var lastBytes int64
	lastUpdate := r.startTime
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			written := r.written.Load()
			speed := Throughput(written-lastBytes, now.Sub(lastUpdate))
			lastBytes, lastUpdate = written, now
			r.logger.Info().
				Str("file", r.opts.Label).
				Str("progress", fmt.Sprintf("%.1f%%", r.Percent())).
				Str("written", humanize.Bytes(uint64(written))).
				Str("size", humanize.Bytes(uint64(r.opts.Total))).
				Str("speed", speed).
				Msg("Progress")
		}
	}
}

// Throughput renders bytes per second, e.g. "12 MB/s". A non-positive
// elapsed time or byte count yields "0 B/s".
func Throughput(bytes int64, elapsed time.Duration) string {
	if bytes <= 0 || elapsed <= 0 {
		return "0 B/s"
	}
	return fmt.Sprintf("%s/s", humanize.Bytes(uint64(float64(bytes)/elapsed.Seconds())))
}
