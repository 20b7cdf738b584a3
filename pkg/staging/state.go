package staging

import (
	"errors"
	"fmt"
	"time"

	"github.com/replicate/rangefetch/pkg/api"
)

// State is a position in the staging poll loop.
type State int

const (
	Polling State = iota
	Ready
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MinPollInterval is the shortest wait between two polls. Smaller or
// negative Retry-After values are raised to it.
const MinPollInterval = time.Second

var ErrMaxWaitTimeExceeded = errors.New("staging: maximum wait time exceeded")

// StagingTimeoutError is returned when a file did not become downloadable
// within the configured maximum wait time.
type StagingTimeoutError struct {
	FileID  string
	Waited  time.Duration
	MaxWait time.Duration
}

func (e *StagingTimeoutError) Error() string {
	return fmt.Sprintf("file %s was not staged after %s (max wait time %s)", e.FileID, e.Waited, e.MaxWait)
}

func (e *StagingTimeoutError) Unwrap() error {
	return ErrMaxWaitTimeExceeded
}

// Step is the outcome of a single transition.
type Step struct {
	State State
	// Elapsed is the accumulated wait including Wait.
	Elapsed time.Duration
	// Wait is how long to sleep before polling again; only set in Polling.
	Wait     time.Duration
	Response *api.URLResponse
	Err      error
}

// Transition computes the next state from the wait accumulated so far and
// the outcome of the latest poll. It never sleeps. Every Polling step adds at
// least MinPollInterval to Elapsed, and Elapsed never exceeds maxWait.
func Transition(elapsed, maxWait time.Duration, resp api.StagingResponse, err error) Step {
	if err != nil {
		return Step{State: Failed, Elapsed: elapsed, Err: err}
	}
	switch r := resp.(type) {
	case *api.URLResponse:
		return Step{State: Ready, Elapsed: elapsed, Response: r}
	case *api.RetryResponse:
		wait := max(r.RetryAfter, MinPollInterval)
		if elapsed >= maxWait || wait > maxWait-elapsed {
			return Step{State: TimedOut, Elapsed: elapsed, Err: ErrMaxWaitTimeExceeded}
		}
		return Step{State: Polling, Elapsed: elapsed + wait, Wait: wait}
	default:
		return Step{State: Failed, Elapsed: elapsed, Err: fmt.Errorf("staging: unexpected response %T", resp)}
	}
}
