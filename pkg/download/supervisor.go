package download

import (
	"context"
	"sync"
	"sync/atomic"
)

// Supervisor starts one goroutine per part and keeps track of them until
// they have returned.
type Supervisor struct {
	Fetcher *RangeFetcher

	wg      sync.WaitGroup
	spawned atomic.Int64
}

// Spawn starts a fetcher for every part and returns immediately. Results are
// only ever delivered through queue.
func (s *Supervisor) Spawn(ctx context.Context, parts []PartRange, queue chan<- QueueItem) {
	for _, part := range parts {
		part := part
		s.wg.Add(1)
		s.spawned.Add(1)
		go func() {
			defer s.wg.Done()
			s.Fetcher.Fetch(ctx, part, queue)
		}()
	}
}

// Wait blocks until every spawned fetcher has returned. Callers that stop
// draining the queue must cancel the fetchers' context first.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) Spawned() int {
	return int(s.spawned.Load())
}
