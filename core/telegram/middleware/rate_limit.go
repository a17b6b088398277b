package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/logger"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
)

// Update kinds accepted by RateLimitOptions.Exclude.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

const limiterIdleTTL = 3 * time.Minute

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the steady-state spacing between updates of one user.
	Interval time.Duration
	// Burst is the number of updates allowed back to back; values below 1 mean 1.
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per user.
type RateLimiter struct {
	opts RateLimitOptions
	now  func() time.Time

	mu        sync.Mutex
	users     map[int64]*userLimiter
	lastSweep time.Time
}

// NewRateLimiter returns a limiter for opts.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &RateLimiter{
		opts:  opts,
		now:   time.Now,
		users: make(map[int64]*userLimiter),
	}
}

// Allow reports whether userID may proceed now.
func (l *RateLimiter) Allow(userID int64) bool {
	if l.opts.Interval <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for id, u := range l.users {
			if now.Sub(u.lastSeen) > limiterIdleTTL {
				delete(l.users, id)
			}
		}
		l.lastSweep = now
	}

	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{limiter: rate.NewLimiter(rate.Every(l.opts.Interval), l.opts.Burst)}
		l.users[userID] = u
	}
	u.lastSeen = now
	return u.limiter.AllowN(now, 1)
}

// Middleware drops updates from users exceeding their budget.
func (l *RateLimiter) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil || l.opts.Interval <= 0 {
			return next(c)
		}
		kind := UpdateKind(c.Update())
		if _, skip := l.opts.Exclude[kind]; skip {
			return next(c)
		}
		if l.Allow(user.ID) {
			return next(c)
		}

		logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
			slog.String("status", "skip"),
			slog.String("outcome", "rate_limited"),
			slog.String("reason", kind),
		)
		if l.opts.OnLimited != nil {
			return l.opts.OnLimited(c)
		}
		return nil
	}
}

// RateLimitMiddleware returns a middleware enforcing opts per user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	return NewRateLimiter(opts).Middleware
}

// UpdateKind classifies u for rate limit exclusions.
func UpdateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return KindCallback
	case u.Message != nil:
		return KindMessage
	case u.Query != nil:
		return KindInlineQuery
	}
	return KindOther
}
