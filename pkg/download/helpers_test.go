package download_test

import (
	"bytes"
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/replicate/rangefetch/pkg/api"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "download"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func readFile(t *testing.T, f *os.File) []byte {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return data
}

func randomContent(size int) []byte {
	content := make([]byte, size)
	rnd := rand.New(rand.NewSource(99))
	_, _ = rnd.Read(content)
	return content
}

// rangeServer serves content with full Range support.
func rangeServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// instrumentedSemaphore records the highest number of permits held at once.
type instrumentedSemaphore struct {
	sem *semaphore.Weighted

	mu      sync.Mutex
	held    int64
	maxHeld int64
}

func newInstrumentedSemaphore(n int64) *instrumentedSemaphore {
	return &instrumentedSemaphore{sem: semaphore.NewWeighted(n)}
}

func (s *instrumentedSemaphore) Acquire(ctx context.Context, n int64) error {
	if err := s.sem.Acquire(ctx, n); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held += n
	if s.held > s.maxHeld {
		s.maxHeld = s.held
	}
	return nil
}

func (s *instrumentedSemaphore) Release(n int64) {
	s.mu.Lock()
	s.held -= n
	s.mu.Unlock()
	s.sem.Release(n)
}

func (s *instrumentedSemaphore) stats() (held, maxHeld int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held, s.maxHeld
}

type fakeStager struct {
	resp *api.URLResponse
	err  error
}

func (s *fakeStager) AwaitReady(context.Context, string) (*api.URLResponse, error) {
	return s.resp, s.err
}

type fakeEnvelopes struct {
	envelope []byte
	err      error
	delay    time.Duration
}

func (e *fakeEnvelopes) Envelope(ctx context.Context, _ string) ([]byte, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.envelope, e.err
}
