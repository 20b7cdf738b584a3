package consumer

import "io"

// Destination receives the envelope and the file content. Writes happen at
// arbitrary offsets, so it must be seekable.
type Destination interface {
	io.WriteSeeker
	io.Closer
}

type Consumer interface {
	Open(destPath string) (Destination, error)
	// EnableOverwrite sets the overwrite flag for the consumer, allowing it to overwrite files if necessary/supported
	EnableOverwrite()
	// Discard removes whatever Open left behind after a failed download.
	Discard(destPath string) error
}
