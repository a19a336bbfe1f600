// internal/relevance/semaphore.go
package relevance

import (
	"context"
	"sync"
)

// adaptiveSemaphore is a bounded semaphore whose capacity is adjusted
// by feedback calls under its own lock. Capacity grows by step after
// streakTarget consecutive successes, up to the ceiling; a transient
// failure halves it (never below 1) and resets the streak.
type adaptiveSemaphore struct {
	mu           sync.Mutex
	cond         *sync.Cond
	capacity     int
	active       int
	ceiling      int
	step         int
	streak       int
	streakTarget int
}

func newAdaptiveSemaphore(floor, ceiling, step, streakTarget int) *adaptiveSemaphore {
	s := &adaptiveSemaphore{
		capacity:     floor,
		ceiling:      ceiling,
		step:         step,
		streakTarget: streakTarget,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Acquire blocks until a slot is free or ctx is done. Capacity shrinks
// only affect future acquisitions; running holders finish normally.
func (s *adaptiveSemaphore) Acquire(ctx context.Context) error {
	// Wake waiters when the context dies so they can observe it.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.active >= s.capacity {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.cond.Wait()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.active++
	return nil
}

func (s *adaptiveSemaphore) Release() {
	s.mu.Lock()
	s.active--
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *adaptiveSemaphore) OnSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streak++
	if s.streak >= s.streakTarget && s.capacity < s.ceiling {
		s.capacity += s.step
		if s.capacity > s.ceiling {
			s.capacity = s.ceiling
		}
		s.streak = 0
		s.cond.Broadcast()
	}
}

func (s *adaptiveSemaphore) OnTransientFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.capacity /= 2
	if s.capacity < 1 {
		s.capacity = 1
	}
	s.streak = 0
}

func (s *adaptiveSemaphore) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}
