package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/replicate/rangefetch/pkg/logging"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Semaphore bounds the number of parts in flight. It is satisfied by
// *semaphore.Weighted from golang.org/x/sync.
type Semaphore interface {
	Acquire(ctx context.Context, n int64) error
	Release(n int64)
}

// URLSource yields the URL a part is fetched from. Implementations may
// return a fresh URL on every call.
type URLSource interface {
	DownloadURL(ctx context.Context) (string, error)
}

// StaticURL reuses a single URL for every part.
type StaticURL string

func (u StaticURL) DownloadURL(context.Context) (string, error) {
	return string(u), nil
}

// RangeFetcher downloads single parts. It never returns an error to its
// caller: the outcome of every part is sent to the queue.
type RangeFetcher struct {
	Client    Doer
	URLs      URLSource
	Semaphore Semaphore
}

// Fetch downloads part and sends exactly one QueueItem to queue. The permit
// is held until the item has been handed over, so a full queue throttles
// admission of new parts. The item is dropped only once ctx is done, which
// means nobody is draining the queue anymore.
func (f *RangeFetcher) Fetch(ctx context.Context, part PartRange, queue chan<- QueueItem) {
	var item QueueItem
	if err := f.Semaphore.Acquire(ctx, 1); err != nil {
		item = &FetchError{Part: part, Cause: err}
	} else {
		defer f.Semaphore.Release(1)
		item = f.fetch(ctx, part)
	}

	select {
	case queue <- item:
	case <-ctx.Done():
	}
}

func (f *RangeFetcher) fetch(ctx context.Context, part PartRange) QueueItem {
	logger := logging.GetLogger()

	downloadURL, err := f.URLs.DownloadURL(ctx)
	if err != nil {
		return &FetchError{Part: part, Cause: fmt.Errorf("error resolving download url: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return &FetchError{Part: part, Cause: newRequestFailed(downloadURL, err)}
	}
	req.Header.Set("Range", part.Header())

	logger.Trace().Str("range", part.Header()).Msg("Fetching part")
	resp, err := f.Client.Do(req)
	if err != nil {
		return &FetchError{Part: part, Cause: newRequestFailed(downloadURL, err)}
	}
	defer resp.Body.Close()

	data, err := readPart(resp, part)
	if err != nil {
		var badStatus *BadResponseCodeError
		var shortRead *ShortReadError
		if !errors.As(err, &badStatus) && !errors.As(err, &shortRead) {
			err = newRequestFailed(downloadURL, err)
		}
		return &FetchError{Part: part, Cause: err}
	}
	return ChunkResult{Offset: part.Start, Data: data}
}

// readPart reads exactly part.Size() bytes of the response. A 200 response
// means the server ignored the Range header and sent the whole object, so
// the bytes before the part are skipped.
func readPart(resp *http.Response, part PartRange) ([]byte, error) {
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		if part.Start > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, part.Start); err != nil {
				if errors.Is(err, io.EOF) {
					return nil, &ShortReadError{Expected: part.Size()}
				}
				return nil, fmt.Errorf("error reading response: %w", err)
			}
		}
	default:
		return nil, &BadResponseCodeError{StatusCode: resp.StatusCode}
	}

	data := make([]byte, part.Size())
	n, err := io.ReadFull(resp.Body, data)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &ShortReadError{Expected: part.Size(), Received: int64(n)}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return data, nil
}

func newRequestFailed(rawURL string, err error) *RequestFailedError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return &RequestFailedError{URL: redactURL(rawURL), Err: err}
}

// redactURL drops the query string, which carries the signature of
// presigned URLs.
func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	parsed.RawQuery = ""
	parsed.User = nil
	return parsed.String()
}
