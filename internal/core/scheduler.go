package core

// scheduler.go runs the session janitor.
//
// Sessions live only in memory. A session that has not been seen for the
// configured TTL is dropped together with its files, so abandoned browser
// tabs do not hold tables forever.

import (
	"context"
	"log/slog"
	"time"
)

// StartJanitor expires idle sessions every interval until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (s *Service) StartJanitor(ctx context.Context) {
	interval := s.cfg.Session.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	slog.Info("session janitor started",
		"ttl", s.cfg.Session.TTL.String(),
		"interval", interval.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := s.ExpireSessions(); n > 0 {
				slog.Info("expired idle sessions", "count", n)
			}
		}
	}
}

// ExpireSessions drops every session idle longer than the TTL and returns
// how many were removed. A non-positive TTL keeps sessions forever.
func (s *Service) ExpireSessions() int {
	ttl := s.cfg.Session.TTL
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
