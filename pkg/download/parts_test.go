package download_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicate/rangefetch/pkg/download"
)

func TestPlanParts(t *testing.T) {
	testCases := []struct {
		name     string
		fileSize int64
		partSize int64
		expected []download.PartRange
	}{
		{
			name:     "uneven last part",
			fileSize: 10,
			partSize: 4,
			expected: []download.PartRange{{Start: 0, Stop: 3}, {Start: 4, Stop: 7}, {Start: 8, Stop: 9}},
		},
		{
			name:     "exact multiple",
			fileSize: 8,
			partSize: 4,
			expected: []download.PartRange{{Start: 0, Stop: 3}, {Start: 4, Stop: 7}},
		},
		{
			name:     "part larger than file",
			fileSize: 3,
			partSize: 16,
			expected: []download.PartRange{{Start: 0, Stop: 2}},
		},
		{
			name:     "single byte parts",
			fileSize: 3,
			partSize: 1,
			expected: []download.PartRange{{Start: 0, Stop: 0}, {Start: 1, Stop: 1}, {Start: 2, Stop: 2}},
		},
		{
			name:     "empty file",
			fileSize: 0,
			partSize: 4,
			expected: []download.PartRange{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := download.PlanParts(tc.fileSize, tc.partSize)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestPlanPartsInvalid(t *testing.T) {
	_, err := download.PlanParts(10, 0)
	assert.ErrorIs(t, err, download.ErrInvalidPartSize)
	_, err = download.PlanParts(10, -1)
	assert.ErrorIs(t, err, download.ErrInvalidPartSize)
	_, err = download.PlanParts(-1, 4)
	assert.ErrorIs(t, err, download.ErrInvalidFileSize)
}

func TestPlanPartsTilesFile(t *testing.T) {
	for fileSize := int64(1); fileSize <= 200; fileSize++ {
		for _, partSize := range []int64{1, 2, 3, 7, 16, 64, 199, 200, 201, 1000} {
			parts, err := download.PlanParts(fileSize, partSize)
			require.NoError(t, err)

			expectedCount := (fileSize + partSize - 1) / partSize
			require.Len(t, parts, int(expectedCount), "file size %d, part size %d", fileSize, partSize)

			var next, total int64
			for i, part := range parts {
				require.Equal(t, next, part.Start, "gap or overlap before part %d", i)
				require.LessOrEqual(t, part.Start, part.Stop)
				require.LessOrEqual(t, part.Size(), partSize)
				if i < len(parts)-1 {
					require.Equal(t, partSize, part.Size())
				}
				next = part.Stop + 1
				total += part.Size()
			}
			require.Equal(t, fileSize, next)
			require.Equal(t, fileSize, total)
		}
	}
}

func TestPlanPartsIsDeterministic(t *testing.T) {
	first, err := download.PlanParts(1<<30+17, 1<<20)
	require.NoError(t, err)
	second, err := download.PlanParts(1<<30+17, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartRangeHeader(t *testing.T) {
	part := download.PartRange{Start: 4, Stop: 7}
	assert.Equal(t, "bytes=4-7", part.Header())
	assert.Equal(t, int64(4), part.Size())
	assert.Equal(t, "4-7", part.String())
}
