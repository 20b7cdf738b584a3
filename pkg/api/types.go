package api

import (
	"fmt"
	"time"
)

// StagingResponse is either a *URLResponse or a *RetryResponse.
type StagingResponse interface {
	stagingResponse()
}

// URLResponse is returned once a file is staged and downloadable.
type URLResponse struct {
	DownloadURL string `json:"download_url"`
	FileSize    int64  `json:"file_size"`
}

// RetryResponse signals that the file is still being staged.
type RetryResponse struct {
	RetryAfter time.Duration
}

func (*URLResponse) stagingResponse()   {}
func (*RetryResponse) stagingResponse() {}

func (r *URLResponse) validate() error {
	if r.DownloadURL == "" {
		return fmt.Errorf("download url missing from response")
	}
	if r.FileSize < 0 {
		return fmt.Errorf("invalid file size %d", r.FileSize)
	}
	return nil
}
