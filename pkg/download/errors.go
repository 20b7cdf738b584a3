package download

import (
	"errors"
	"fmt"
)

var (
	ErrOffsetOutOfRange = errors.New("chunk lies outside of the file")
	ErrQueueClosed      = errors.New("queue closed before the download completed")
	ErrOverlappingChunk = errors.New("chunk overlaps bytes already written")
)

// BadResponseCodeError is returned when a range request is answered with a
// status other than 200 or 206.
type BadResponseCodeError struct {
	StatusCode int
}

func (e *BadResponseCodeError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}

// RequestFailedError is returned when a range request could not be completed,
// after the HTTP client exhausted its retries.
type RequestFailedError struct {
	URL string
	Err error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("error executing request for %s: %v", e.URL, e.Err)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// ShortReadError is returned when the response body ends before the
// requested range was fully received.
type ShortReadError struct {
	Expected int64
	Received int64
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("received %d bytes instead of %d", e.Received, e.Expected)
}

// FetchError is the failure outcome of a single part.
type FetchError struct {
	Part  PartRange
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("part %s: %v", e.Part, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// DownloadError aborts a whole download. It is the only error the pipeline
// returns for part level failures.
type DownloadError struct {
	Cause error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: %v", e.Cause)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}
