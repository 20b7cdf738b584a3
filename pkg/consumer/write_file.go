package consumer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

type FileWriter struct {
	Overwrite bool
}

var _ Consumer = &FileWriter{}

// Open creates destPath. Unless Overwrite is set an existing file is an
// error.
func (f *FileWriter) Open(destPath string) (Destination, error) {
	openFlags := os.O_WRONLY | os.O_CREATE
	if f.Overwrite {
		openFlags |= os.O_TRUNC
	} else {
		openFlags |= os.O_EXCL
	}
	out, err := os.OpenFile(destPath, openFlags, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return out, nil
}

func (f *FileWriter) EnableOverwrite() {
	f.Overwrite = true
}

func (f *FileWriter) Discard(destPath string) error {
	if err := os.Remove(destPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing partial file: %w", err)
	}
	return nil
}
