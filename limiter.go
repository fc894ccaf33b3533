package pressroom

import (
	"sync"
	"time"
)

// loginLimiter rate-limits failed login attempts per IP address. Successful
// logins are never counted; only Record adds an attempt.
type loginLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	done     chan struct{}
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	l := &loginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		done:     make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// sweepLoop periodically drops idle IPs so the map cannot grow without bound
// between login attempts. Runs until Stop.
func (l *loginLimiter) sweepLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip := range l.attempts {
				l.pruneLocked(ip, cutoff)
			}
			l.mu.Unlock()
		}
	}
}

// pruneLocked drops attempts for ip older than cutoff and returns what is
// left. Empty entries are removed from the map. Caller holds the mutex.
func (l *loginLimiter) pruneLocked(ip string, cutoff time.Time) []time.Time {
	kept := l.attempts[ip][:0]
	for _, t := range l.attempts[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, ip)
		return nil
	}
	l.attempts[ip] = kept
	return kept
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record an attempt; call Record separately on failure.
func (l *loginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pruneLocked(ip, time.Now().Add(-l.window))) < l.max
}

// Record registers a failed login attempt for the given IP.
func (l *loginLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	l.mu.Unlock()
}

// Stop ends the background sweep. Check and Record stay usable; entries then
// only age out lazily on Check.
func (l *loginLimiter) Stop() {
	close(l.done)
}
