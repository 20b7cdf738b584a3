package download_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/rangefetch/pkg/download"
)

type countingSink struct {
	total int64
	calls int
}

func (s *countingSink) Advance(n int64) {
	s.total += n
	s.calls++
}

func TestDrainOutOfOrder(t *testing.T) {
	content := []byte("0123456789")
	parts, err := download.PlanParts(int64(len(content)), 4)
	require.NoError(t, err)
	require.Equal(t, []download.PartRange{{Start: 0, Stop: 3}, {Start: 4, Stop: 7}, {Start: 8, Stop: 9}}, parts)

	queue := make(chan download.QueueItem, 3)
	for _, i := range []int{2, 0, 1} {
		part := parts[i]
		queue <- download.ChunkResult{Offset: part.Start, Data: content[part.Start : part.Stop+1]}
	}

	f := tempFile(t)
	sink := &countingSink{}
	writer := download.NewOrderedWriter(f, int64(len(content)), []byte("HI"), sink)
	require.NoError(t, writer.Drain(context.Background(), queue))

	data := readFile(t, f)
	assert.Equal(t, []byte("HI"), data[:2])
	assert.Equal(t, content, data[2:12])
	assert.Len(t, data, 12)
	assert.Equal(t, int64(10), writer.Downloaded())
	assert.Equal(t, int64(10), sink.total)
	assert.Equal(t, 3, sink.calls)
}

func TestDrainStopsAtFirstError(t *testing.T) {
	cause := &download.BadResponseCodeError{StatusCode: 500}
	queue := make(chan download.QueueItem, 3)
	queue <- download.ChunkResult{Offset: 0, Data: []byte("0123")}
	queue <- &download.FetchError{Part: download.PartRange{Start: 4, Stop: 7}, Cause: cause}
	queue <- download.ChunkResult{Offset: 8, Data: []byte("89")}

	f := tempFile(t)
	writer := download.NewOrderedWriter(f, 10, nil, nil)
	err := writer.Drain(context.Background(), queue)

	var downloadErr *download.DownloadError
	require.ErrorAs(t, err, &downloadErr)
	var badStatus *download.BadResponseCodeError
	require.ErrorAs(t, err, &badStatus)
	assert.Equal(t, 500, badStatus.StatusCode)

	assert.Equal(t, int64(4), writer.Downloaded())
	assert.Equal(t, []byte("0123"), readFile(t, f))
	// the chunk queued behind the error was left alone
	assert.Len(t, queue, 1)
}

func TestDrainRejectsOutOfRangeChunks(t *testing.T) {
	testCases := []struct {
		name  string
		chunk download.ChunkResult
	}{
		{"negative offset", download.ChunkResult{Offset: -1, Data: []byte("x")}},
		{"starts past the end", download.ChunkResult{Offset: 10, Data: []byte("x")}},
		{"runs past the end", download.ChunkResult{Offset: 8, Data: []byte("xyz")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			queue := make(chan download.QueueItem, 1)
			queue <- tc.chunk
			f := tempFile(t)
			writer := download.NewOrderedWriter(f, 10, []byte("HI"), nil)

			err := writer.Drain(context.Background(), queue)
			assert.ErrorIs(t, err, download.ErrOffsetOutOfRange)
			assert.Equal(t, []byte("HI"), readFile(t, f))
		})
	}
}

func TestDrainCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	writer := download.NewOrderedWriter(tempFile(t), 10, nil, nil)
	err := writer.Drain(ctx, make(chan download.QueueItem))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var downloadErr *download.DownloadError
	assert.True(t, errors.As(err, &downloadErr))
}

func TestDrainClosedQueue(t *testing.T) {
	queue := make(chan download.QueueItem, 1)
	queue <- download.ChunkResult{Offset: 0, Data: []byte("0123")}
	close(queue)

	writer := download.NewOrderedWriter(tempFile(t), 10, nil, nil)
	assert.ErrorIs(t, writer.Drain(context.Background(), queue), download.ErrQueueClosed)
}

func TestDrainEmptyFile(t *testing.T) {
	f := tempFile(t)
	writer := download.NewOrderedWriter(f, 0, []byte("envelope"), nil)
	require.NoError(t, writer.Drain(context.Background(), make(chan download.QueueItem)))
	assert.Equal(t, []byte("envelope"), readFile(t, f))
}

func TestDrainDuplicateChunk(t *testing.T) {
	queue := make(chan download.QueueItem, 3)
	queue <- download.ChunkResult{Offset: 0, Data: []byte("0123")}
	queue <- download.ChunkResult{Offset: 2, Data: []byte("23456")}

	writer := download.NewOrderedWriter(tempFile(t), 8, nil, nil)
	err := writer.Drain(context.Background(), queue)
	var downloadErr *download.DownloadError
	assert.ErrorAs(t, err, &downloadErr)
	assert.ErrorIs(t, err, download.ErrOverlappingChunk)
}

// Overlapping chunks whose lengths add up to the file size must not pass
// for a complete download.
func TestDrainOverlapReachingExpectedSize(t *testing.T) {
	testCases := []struct {
		name   string
		chunks []download.ChunkResult
	}{
		{"second chunk overlaps the first", []download.ChunkResult{
			{Offset: 0, Data: []byte("0123")},
			{Offset: 2, Data: []byte("2345")},
		}},
		{"first chunk overlaps the second", []download.ChunkResult{
			{Offset: 2, Data: []byte("2345")},
			{Offset: 0, Data: []byte("0123")},
		}},
		{"same offset twice", []download.ChunkResult{
			{Offset: 4, Data: []byte("4567")},
			{Offset: 4, Data: []byte("4567")},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			queue := make(chan download.QueueItem, len(tc.chunks))
			for _, chunk := range tc.chunks {
				queue <- chunk
			}
			writer := download.NewOrderedWriter(tempFile(t), 8, nil, nil)
			err := writer.Drain(context.Background(), queue)
			require.ErrorIs(t, err, download.ErrOverlappingChunk)
			assert.Equal(t, int64(4), writer.Downloaded())
		})
	}
}

func TestDrainAdjacentChunks(t *testing.T) {
	queue := make(chan download.QueueItem, 3)
	queue <- download.ChunkResult{Offset: 4, Data: []byte("4567")}
	queue <- download.ChunkResult{Offset: 0, Data: []byte("0123")}
	f := tempFile(t)

	writer := download.NewOrderedWriter(f, 8, nil, nil)
	require.NoError(t, writer.Drain(context.Background(), queue))
	assert.Equal(t, []byte("01234567"), readFile(t, f))
}
