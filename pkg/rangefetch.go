package rangefetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/replicate/rangefetch/pkg/consumer"
	"github.com/replicate/rangefetch/pkg/download"
	"github.com/replicate/rangefetch/pkg/logging"
	"github.com/replicate/rangefetch/pkg/progress"
)

type Getter struct {
	Downloader *download.Downloader
	Consumer   consumer.Consumer
	Options    Options
}

type Options struct {
	// MaxConcurrentFiles limits DownloadFiles. Zero means no limit.
	MaxConcurrentFiles int
}

// DownloadFile downloads fileID into dest. A failed download never leaves a
// partial file behind.
func (g *Getter) DownloadFile(ctx context.Context, fileID string, dest string) (int64, time.Duration, error) {
	if g.Consumer == nil {
		g.Consumer = &consumer.FileWriter{}
	}
	logger := logging.GetLogger()
	downloadStartTime := time.Now()

	out, err := g.Consumer.Open(dest)
	if err != nil {
		return 0, 0, err
	}
	fileSize, err := g.Downloader.Download(ctx, fileID, out)
	closeErr := out.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("error closing %s: %w", dest, closeErr)
	}
	if err != nil {
		if discardErr := g.Consumer.Discard(dest); discardErr != nil {
			err = errors.Join(err, discardErr)
		}
		return fileSize, 0, err
	}
	totalElapsed := time.Since(downloadStartTime)

	size := humanize.Bytes(uint64(fileSize))
	logger.Info().
		Str("file_id", fileID).
		Str("dest", dest).
		Str("size", size).
		Str("throughput", progress.Throughput(fileSize, totalElapsed)).
		Str("elapsed", fmt.Sprintf("%.3fs", totalElapsed.Seconds())).
		Msg("Complete")
	return fileSize, totalElapsed, nil
}

// DownloadFiles downloads every manifest entry. The first failure cancels
// the remaining downloads.
func (g *Getter) DownloadFiles(ctx context.Context, manifest Manifest) (int64, time.Duration, error) {
	logger := logging.GetLogger()
	if g.Consumer == nil {
		g.Consumer = &consumer.FileWriter{}
	}

	errGroup, ctx := errgroup.WithContext(ctx)
	if g.Options.MaxConcurrentFiles > 0 {
		errGroup.SetLimit(g.Options.MaxConcurrentFiles)
	}

	var totalSize atomic.Int64
	multifileDownloadStart := time.Now()
	for _, entry := range manifest {
		entry := entry
		logger.Debug().Str("file_id", entry.FileID).Str("dest", entry.Dest).Msg("Queueing Download")
		errGroup.Go(func() error {
			fileSize, _, err := g.DownloadFile(ctx, entry.FileID, entry.Dest)
			if err != nil {
				return fmt.Errorf("error downloading %s: %w", entry.FileID, err)
			}
			totalSize.Add(fileSize)
			return nil
		})
	}
	if err := errGroup.Wait(); err != nil {
		return totalSize.Load(), 0, err
	}
	elapsedTime := time.Since(multifileDownloadStart)

	logger.Info().
		Int("file_count", len(manifest)).
		Str("total_bytes_downloaded", humanize.Bytes(uint64(totalSize.Load()))).
		Str("throughput", progress.Throughput(totalSize.Load(), elapsedTime)).
		Str("elapsed_time", fmt.Sprintf("%.3fs", elapsedTime.Seconds())).
		Msg("Metrics")
	return totalSize.Load(), elapsedTime, nil
}
