package platform

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// accountLimiters holds one token bucket per account on a platform. Safe for
// concurrent use by any number of dispatch workers.
type accountLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newAccountLimiters(perSecond float64, burst int) *accountLimiters {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &accountLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *accountLimiters) forAccount(account string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[account]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[account] = lim
	}
	return lim
}

// take consumes one token for the account, or reports how long the caller
// should back off. It never blocks; the backoff hint travels up as a
// RateLimited failure.
func (l *accountLimiters) take(account string) (time.Duration, bool) {
	res := l.forAccount(account).Reserve()
	if !res.OK() {
		return time.Second, false
	}
	delay := res.Delay()
	if delay > 0 {
		res.Cancel()
		return delay, false
	}
	return 0, true
}
