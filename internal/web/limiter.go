package web

// limiter.go bounds how many previews and commits run at once.
//
// Parsing and validating a workbook holds the whole file in memory, so the
// server admits at most maxConcurrent of them. A request that finds every
// slot busy waits up to maxWait before failing with ErrTooManyImports.
// WaitForDrain lets shutdown wait for running jobs to finish.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyImports is returned when no job slot frees up within the wait
// time. Clients should retry shortly.
var ErrTooManyImports = errors.New("rate limit: too many concurrent imports, please try again later")

const (
	DefaultMaxConcurrentJobs = 4
	DefaultMaxWaitTime       = 15 * time.Second
)

// JobLimiter is a counting semaphore for import jobs.
type JobLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewJobLimiter allows at most maxConcurrent jobs at once.
func NewJobLimiter(maxConcurrent int, maxWait time.Duration) *JobLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentJobs
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &JobLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most the limiter's wait time. The caller
// must Release it.
func (l *JobLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyImports
	}
}

// Release returns a slot taken by Acquire.
func (l *JobLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Run executes fn while holding a slot.
func (l *JobLimiter) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// ActiveCount returns the number of running jobs.
func (l *JobLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no job is running or ctx is done.
func (l *JobLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current usage.
func (l *JobLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
