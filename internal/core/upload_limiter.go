package core

// upload_limiter.go bounds how many uploads are parsed at the same time.
//
// Parsing a spreadsheet holds the whole file and its table in memory, so the
// server admits at most MaxConcurrent batches at once. A batch that cannot get
// a slot within the wait time is rejected with ErrTooManyUploads.

import (
	"context"
	"errors"
	"time"
)

// ErrTooManyUploads is returned when no upload slot frees up in time.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// Limiter defaults used when the configured values are not positive.
const (
	DefaultMaxConcurrentUploads = 5
	DefaultMaxWaitTime          = 30 * time.Second
)

// drainPoll is how often WaitForDrain checks for idle.
const drainPoll = 50 * time.Millisecond

// UploadLimiter is a counting semaphore over upload batches.
type UploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
}

// UploadLimiterStatus is a snapshot of the limiter.
type UploadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// NewUploadLimiter creates a limiter with maxConcurrent slots.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &UploadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most the limiter's wait time. The caller
// must Release a slot it acquired.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyUploads
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *UploadLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release gives back a slot.
func (l *UploadLimiter) Release() {
	<-l.slots
}

// ActiveCount returns the number of held slots.
func (l *UploadLimiter) ActiveCount() int {
	return len(l.slots)
}

// Status returns the current slot counts.
func (l *UploadLimiter) Status() UploadLimiterStatus {
	active := len(l.slots)
	return UploadLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no slot is held or ctx is done.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
