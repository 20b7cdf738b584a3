package staging

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/replicate/rangefetch/pkg/api"
	"github.com/replicate/rangefetch/pkg/logging"
)

const DefaultMaxWait = 60 * time.Second

// URLGetter is the staging endpoint, implemented by *api.Client.
type URLGetter interface {
	GetDownloadURL(ctx context.Context, url string, headers http.Header) (api.StagingResponse, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Resolver waits for a file to be staged and yields its download URL.
type Resolver struct {
	Authorizer api.Authorizer
	URLs       URLGetter
	MaxWait    time.Duration
	// Sleep defaults to a context-aware timer.
	Sleep SleepFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// AwaitReady polls until the file is staged, the accumulated retry-after
// delays or the wall-clock time spent would exceed MaxWait, or the API
// reports a terminal error.
func (r *Resolver) AwaitReady(ctx context.Context, fileID string) (*api.URLResponse, error) {
	logger := logging.ForFile(fileID)
	maxWait := r.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	start := now()
	var elapsed time.Duration
	for {
		resp, err := r.poll(ctx, fileID)
		step := Transition(elapsed, maxWait, resp, err)
		if step.State == Polling {
			if waited := now().Sub(start); waited+step.Wait > maxWait {
				return nil, &StagingTimeoutError{FileID: fileID, Waited: waited, MaxWait: maxWait}
			}
		}
		switch step.State {
		case Ready:
			logger.Debug().
				Int64("size", step.Response.FileSize).
				Dur("waited", step.Elapsed).
				Msg("Staged")
			return step.Response, nil
		case TimedOut:
			return nil, &StagingTimeoutError{FileID: fileID, Waited: step.Elapsed, MaxWait: maxWait}
		case Failed:
			return nil, step.Err
		}

		logger.Info().
			Dur("retry_after", step.Wait).
			Dur("waited", elapsed).
			Msg("Waiting for file to be staged")
		if err := sleep(ctx, step.Wait); err != nil {
			return nil, err
		}
		elapsed = step.Elapsed
	}
}

// Resolve performs a single authorization and URL request. A file that is
// not staged yields api.ErrNotStaged.
func (r *Resolver) Resolve(ctx context.Context, fileID string) (*api.URLResponse, error) {
	resp, err := r.poll(ctx, fileID)
	if err != nil {
		return nil, err
	}
	urlResponse, ok := resp.(*api.URLResponse)
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrNotStaged, fileID)
	}
	return urlResponse, nil
}

func (r *Resolver) poll(ctx context.Context, fileID string) (api.StagingResponse, error) {
	url, headers, err := r.Authorizer.FileAuthorization(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("error authorizing file %s: %w", fileID, err)
	}
	return r.URLs.GetDownloadURL(ctx, url, headers)
}

// PartURLs returns a URL source that resolves a fresh download URL on every
// call, for backends that issue single-use URLs.
func (r *Resolver) PartURLs(fileID string) *PartURLs {
	return &PartURLs{resolver: r, fileID: fileID}
}

type PartURLs struct {
	resolver *Resolver
	fileID   string
}

func (p *PartURLs) DownloadURL(ctx context.Context) (string, error) {
	resp, err := p.resolver.Resolve(ctx, p.fileID)
	if err != nil {
		return "", err
	}
	return resp.DownloadURL, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
