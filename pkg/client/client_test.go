package client_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/rangefetch/pkg/client"
)

func TestRetryPolicy(t *testing.T) {
	bgCtx := context.Background()
	errContext, cancel := context.WithCancel(bgCtx)
	cancel()

	urlError := &url.Error{Err: fmt.Errorf("stopped after 15 redirects"), URL: "http://example.com"}

	tc := []struct {
		name           string
		ctx            context.Context
		resp           *http.Response
		err            error
		expectedResult bool
		expectedError  error
	}{
		{
			name:           "context error",
			ctx:            errContext,
			resp:           &http.Response{},
			err:            context.Canceled,
			expectedResult: false,
			expectedError:  context.Canceled,
		},
		{
			name:           "wrapped context error on live context",
			ctx:            bgCtx,
			resp:           &http.Response{},
			err:            fmt.Errorf("read body: %w", context.DeadlineExceeded),
			expectedResult: false,
			expectedError:  context.DeadlineExceeded,
		},
		{
			name:           "net.OpErr: dial",
			ctx:            bgCtx,
			resp:           &http.Response{},
			err:            &net.OpError{Op: "dial"},
			expectedResult: true,
		},
		{
			name:           "Unrecoverable error",
			ctx:            bgCtx,
			resp:           &http.Response{},
			err:            urlError,
			expectedResult: false,
		},
		{
			name:           "Status OK",
			ctx:            bgCtx,
			resp:           &http.Response{StatusCode: http.StatusOK},
			expectedResult: false,
		},
		{
			name:           "Status Partial Content",
			ctx:            bgCtx,
			resp:           &http.Response{StatusCode: http.StatusPartialContent},
			expectedResult: false,
		},
		{
			name:           "Status Accepted is not retried",
			ctx:            bgCtx,
			resp:           &http.Response{StatusCode: http.StatusAccepted},
			expectedResult: false,
		},
		{
			name:           "Status Forbidden is not retried",
			ctx:            bgCtx,
			resp:           &http.Response{StatusCode: http.StatusForbidden},
			expectedResult: false,
		},
		{
			name:           "Status Service Unavailable",
			ctx:            bgCtx,
			resp:           &http.Response{StatusCode: http.StatusServiceUnavailable},
			expectedResult: true,
		},
		{
			name:           "Too Many Requests",
			ctx:            bgCtx,
			resp:           &http.Response{StatusCode: http.StatusTooManyRequests},
			expectedResult: true,
		},
	}

	for _, tc := range tc {
		t.Run(tc.name, func(t *testing.T) {
			actualResult, actualError := client.RetryPolicy(tc.ctx, tc.resp, tc.err)
			assert.Equal(t, tc.expectedResult, actualResult)
			if tc.expectedError != nil {
				assert.True(t, errors.Is(actualError, tc.expectedError))
			} else {
				assert.NoError(t, actualError)
			}
		})
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	httpClient := client.NewHTTPClient(client.Options{MaxRetries: 2})
	resp, err := httpClient.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClientGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	httpClient := client.NewHTTPClient(client.Options{MaxRetries: 1})
	resp, err := httpClient.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	// the last response is returned so callers can inspect the status
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	httpClient := client.NewHTTPClient(client.Options{MaxRetries: 3})
	resp, err := httpClient.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUserAgent(t *testing.T) {
	var userAgent atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
	}))
	defer ts.Close()

	httpClient := client.NewHTTPClient(client.Options{})
	resp, err := httpClient.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, userAgent.Load(), "rangefetch/")
}

func TestResolveOverrides(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Host))
	}))
	defer ts.Close()

	serverURL, err := url.Parse(ts.URL)
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(serverURL.Host)
	require.NoError(t, err)

	httpClient := client.NewHTTPClient(client.Options{
		ResolveOverrides: map[string]string{
			net.JoinHostPort("objects.example.invalid", port): serverURL.Host,
		},
	})
	resp, err := httpClient.Get(fmt.Sprintf("http://objects.example.invalid:%s/", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
