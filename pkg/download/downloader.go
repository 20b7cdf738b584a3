package download

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/replicate/rangefetch/pkg/api"
	"github.com/replicate/rangefetch/pkg/logging"
	"github.com/replicate/rangefetch/pkg/progress"
)

// Stager waits until a file can be downloaded.
type Stager interface {
	AwaitReady(ctx context.Context, fileID string) (*api.URLResponse, error)
}

// EnvelopeSource supplies the bytes written in front of the file content.
type EnvelopeSource interface {
	Envelope(ctx context.Context, fileID string) ([]byte, error)
}

// Downloader runs the whole pipeline for a single file: staging, part
// planning, parallel range fetches and the ordered write.
type Downloader struct {
	Client    Doer
	Stager    Stager
	Envelopes EnvelopeSource
	// PartURLs, if set, provides the URL source for each file. Otherwise
	// the URL returned by staging is reused for every part.
	PartURLs func(fileID string) URLSource
	Options
}

// Download fetches fileID into dest and returns the size of the file content
// (excluding the envelope). On error dest is left incomplete and should be
// discarded.
func (d *Downloader) Download(ctx context.Context, fileID string, dest io.WriteSeeker) (int64, error) {
	logger := logging.ForFile(fileID)

	staged, err := d.Stager.AwaitReady(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("error staging file %s: %w", fileID, err)
	}
	parts, err := PlanParts(staged.FileSize, d.partSize())
	if err != nil {
		return staged.FileSize, err
	}

	ctx, cancel := context.WithCancel(ctx)

	var envelope []byte
	var envelopeGroup errgroup.Group
	envelopeGroup.Go(func() error {
		if d.Envelopes == nil {
			return nil
		}
		var err error
		envelope, err = d.Envelopes.Envelope(ctx, fileID)
		if err != nil {
			return fmt.Errorf("error fetching envelope for %s: %w", fileID, err)
		}
		return nil
	})

	var urls URLSource = StaticURL(staged.DownloadURL)
	if d.PartURLs != nil {
		urls = d.PartURLs(fileID)
	}
	sem := d.Semaphore
	if sem == nil {
		sem = semaphore.NewWeighted(int64(d.maxConcurrency()))
	}
	supervisor := &Supervisor{
		Fetcher: &RangeFetcher{Client: d.Client, URLs: urls, Semaphore: sem},
	}
	queue := make(chan QueueItem, d.queueDepth())

	logger.Debug().
		Int64("size", staged.FileSize).
		Int("parts", len(parts)).
		Int64("part_size", d.partSize()).
		Int("concurrency", d.maxConcurrency()).
		Msg("Downloading")

	startTime := time.Now()
	supervisor.Spawn(ctx, parts, queue)
	// Fetchers blocked on a full queue only return once ctx is cancelled.
	defer func() {
		cancel()
		supervisor.Wait()
	}()

	if err := envelopeGroup.Wait(); err != nil {
		return staged.FileSize, err
	}

	reporter := progress.NewReporter(progress.Options{
		Total:    staged.FileSize,
		Label:    fileID,
		Interval: d.ProgressInterval,
	})
	reporter.Start(ctx)
	defer reporter.Stop()

	writer := NewOrderedWriter(dest, staged.FileSize, envelope, reporter)
	if err := writer.Drain(ctx, queue); err != nil {
		return staged.FileSize, err
	}

	elapsed := time.Since(startTime)
	logger.Debug().
		Str("size", humanize.Bytes(uint64(staged.FileSize))).
		Int("envelope_size", len(envelope)).
		Str("elapsed", fmt.Sprintf("%.3fs", elapsed.Seconds())).
		Str("throughput", progress.Throughput(staged.FileSize, elapsed)).
		Msg("Parts complete")
	return staged.FileSize, nil
}
