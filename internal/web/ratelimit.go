package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// rateWindow is the fixed window the per-IP limits are counted over.
const rateWindow = time.Minute

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a limiter of rate requests per minute and registers
// it so Shutdown stops its sweeper.
func (s *Server) newRateLimiter(rate int) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   rateWindow,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.sweep()
	s.limiters = append(s.limiters, rl)
	return rl
}

// sweep drops visitors idle for two windows.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > 2*rl.window {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow consumes one request for ip and reports whether it is within the limit.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr was already rewritten by TrustedRealIP.
		ip := r.RemoteAddr
		if host := hostOnly(ip); host != "" {
			ip = host
		}

		if !rl.allow(ip) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				"ip", ip,
				"path", r.URL.Path,
				"limit", rl.rate,
			)
			w.Header().Set("Retry-After", retryAfter(rl.window))
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
