package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/replicate/rangefetch/pkg/logging"
)

// maxErrorBody bounds how much of an unexpected response is kept for error
// messages.
const maxErrorBody = 512

// maxRetryAfterSeconds is the largest delay-seconds value that fits in a
// time.Duration. Larger values are clamped to it.
const maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// Client talks to the download API. The HTTP client is expected to carry the
// retry policy; Client only interprets terminal responses.
type Client struct {
	HTTPClient *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTPClient: httpClient}
}

// GetDownloadURL asks the API for the download URL of a file. A file that is
// still being staged yields a *RetryResponse.
func (c *Client) GetDownloadURL(ctx context.Context, url string, headers http.Header) (StagingResponse, error) {
	resp, err := c.get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var urlResponse URLResponse
		if err := json.NewDecoder(resp.Body).Decode(&urlResponse); err != nil {
			return nil, &ExternalAPIError{URL: url, StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed body: %v", err)}
		}
		if err := urlResponse.validate(); err != nil {
			return nil, &ExternalAPIError{URL: url, StatusCode: resp.StatusCode, Message: err.Error()}
		}
		return &urlResponse, nil
	case http.StatusAccepted:
		retryAfter, err := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		if err != nil {
			return nil, &ExternalAPIError{URL: url, StatusCode: resp.StatusCode, Message: err.Error()}
		}
		logger := logging.GetLogger()
		logger.Debug().
			Str("url", url).
			Dur("retry_after", retryAfter).
			Msg("Staging")
		return &RetryResponse{RetryAfter: retryAfter}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, url)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrFileNotRegistered, url)
	default:
		return nil, unexpectedResponse(url, resp)
	}
}

// GetEnvelope fetches the opaque envelope bytes that prefix the file.
func (c *Client) GetEnvelope(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	resp, err := c.get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		envelope, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading envelope from %s: %w", url, err)
		}
		return envelope, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, url)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrEnvelopeNotFound, url)
	default:
		return nil, unexpectedResponse(url, resp)
	}
}

func (c *Client) get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing request for %s: %w", url, err)
	}
	return resp, nil
}

func unexpectedResponse(url string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ExternalAPIError{URL: url, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

// parseRetryAfter accepts both forms allowed for the Retry-After header:
// delay-seconds and an HTTP date. A date in the past yields zero.
func parseRetryAfter(value string, now time.Time) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("missing Retry-After header")
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative Retry-After header: %s", value)
		}
		if seconds > maxRetryAfterSeconds {
			seconds = maxRetryAfterSeconds
		}
		return time.Duration(seconds) * time.Second, nil
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, fmt.Errorf("invalid Retry-After header: %s", value)
	}
	if delay := at.Sub(now); delay > 0 {
		return delay, nil
	}
	return 0, nil
}
