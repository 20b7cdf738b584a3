package download

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPartSize = errors.New("part size must be greater than zero")
	ErrInvalidFileSize = errors.New("file size must not be negative")
)

// PartRange is an inclusive byte range of the remote file.
type PartRange struct {
	Start int64
	Stop  int64
}

func (p PartRange) Size() int64 {
	return p.Stop - p.Start + 1
}

// Header renders the range as the value of an HTTP Range header.
func (p PartRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", p.Start, p.Stop)
}

func (p PartRange) String() string {
	return fmt.Sprintf("%d-%d", p.Start, p.Stop)
}

// PlanParts splits [0, fileSize) into ceil(fileSize/partSize) consecutive
// ranges. The last range is clamped to the end of the file.
func PlanParts(fileSize, partSize int64) ([]PartRange, error) {
	if partSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartSize, partSize)
	}
	if fileSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFileSize, fileSize)
	}
	count := fileSize / partSize
	if fileSize%partSize != 0 {
		count++
	}
	parts := make([]PartRange, 0, count)
	for start := int64(0); start < fileSize; start += partSize {
		stop := start + partSize - 1
		if stop > fileSize-1 {
			stop = fileSize - 1
		}
		parts = append(parts, PartRange{Start: start, Stop: stop})
	}
	return parts, nil
}
