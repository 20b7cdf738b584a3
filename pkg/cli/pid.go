//go:build !windows

package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/replicate/rangefetch/pkg/logging"
)

// PIDFile is an flock-protected file holding the pid of the process that
// owns it. Concurrent invocations sharing a PID file run one at a time.
type PIDFile struct {
	file *os.File
	fd   int
}

func NewPIDFile(path string) (*PIDFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening pid file: %w", err)
	}
	return &PIDFile{file: file, fd: int(file.Fd())}, nil
}

// Acquire takes the lock, waiting for another holder if necessary, and
// records the current pid.
func (p *PIDFile) Acquire() error {
	logger := logging.GetLogger()
	if err := syscall.Flock(p.fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			return fmt.Errorf("error locking %s: %w", p.file.Name(), err)
		}
		logger.Warn().
			Str("pid_file", p.file.Name()).
			Str("message", "Another rangefetch process may be running, use 'rangefetch multifile' to download multiple files in parallel").
			Msg("Waiting on Lock")
		if err := syscall.Flock(p.fd, syscall.LOCK_EX); err != nil {
			return fmt.Errorf("error locking %s: %w", p.file.Name(), err)
		}
	}
	if err := p.file.Truncate(0); err != nil {
		return err
	}
	if _, err := p.file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return err
	}
	return p.file.Sync()
}

// Release unlocks and removes the file.
func (p *PIDFile) Release() error {
	if err := syscall.Flock(p.fd, syscall.LOCK_UN); err != nil {
		return err
	}
	if err := p.file.Close(); err != nil {
		return err
	}
	return os.Remove(p.file.Name())
}

// WithPIDFile runs fn while holding the lock on path. An empty path runs fn
// without locking.
func WithPIDFile(path string, fn func() error) (err error) {
	if path == "" {
		return fn()
	}
	pidFile, err := NewPIDFile(path)
	if err != nil {
		return err
	}
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer func() {
		if releaseErr := pidFile.Release(); releaseErr != nil && err == nil {
			err = fmt.Errorf("error releasing pid file: %w", releaseErr)
		}
	}()
	return fn()
}
