package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultCallTimeout bounds every backend call.
	DefaultCallTimeout = 30 * time.Second
	// DefaultPageDelay is the pause between paginated directory calls.
	DefaultPageDelay = 50 * time.Millisecond
	// maxRetryAfter caps how long a read waits on a rate limit before giving up.
	maxRetryAfter = 10 * time.Second
)

// methodRates is each backend method's tier ceiling in calls a minute.
var methodRates = map[string]int{
	"auth.test":             100,
	"users.info":            100,
	"conversations.list":    20,
	"conversations.history": 50,
	"conversations.replies": 50,
	"search.messages":       20,
	"chat.postMessage":      60,
	"reactions.add":         50,
}

const defaultMethodRate = 50

// MethodLimiter returns a fresh bucket for one backend method. The whole
// minute's allowance is available as burst, so throttling only starts once
// a method runs past its tier.
func MethodLimiter(method string) *rate.Limiter {
	perMinute, ok := methodRates[method]
	if !ok {
		perMinute = defaultMethodRate
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// transport is shared by the identity resolver, the directory and the
// client so a method's rate budget is the same whichever of them calls it.
type transport struct {
	api       Backend
	timeout   time.Duration
	pageDelay time.Duration
	clock     Clock
	logger    *zap.Logger

	// shared, when set, replaces the per-method buckets.
	shared    *rate.Limiter
	unlimited bool

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

func (t *transport) limiter(method string) *rate.Limiter {
	if t.unlimited {
		return nil
	}
	if t.shared != nil {
		return t.shared
	}
	t.limitersMu.Lock()
	defer t.limitersMu.Unlock()
	if t.limiters == nil {
		t.limiters = make(map[string]*rate.Limiter)
	}
	limiter, ok := t.limiters[method]
	if !ok {
		limiter = MethodLimiter(method)
		t.limiters[method] = limiter
	}
	return limiter
}

// slackRetryAfter returns the retry-after duration of a rate limit error,
// or zero for anything else.
func slackRetryAfter(err error) time.Duration {
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}

// read runs a read-only call under its method's limiter and the call timeout. A rate
// limited read is retried once after the backend's retry-after hint.
func read[T any](ctx context.Context, t *transport, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := once(ctx, t, op, fn)
		if err == nil {
			return result, nil
		}
		retryAfter := slackRetryAfter(err)
		if attempt > 0 || retryAfter <= 0 || retryAfter > maxRetryAfter {
			return zero, err
		}
		t.logger.Debug("Rate limited, retrying",
			zap.String("op", op),
			zap.Duration("retryAfter", retryAfter))
		if sleepErr := t.clock.Sleep(ctx, retryAfter); sleepErr != nil {
			return zero, sleepErr
		}
	}
}

// write runs a mutating call exactly once.
func write[T any](ctx context.Context, t *transport, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return once(ctx, t, op, fn)
}

func once[T any](ctx context.Context, t *transport, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if limiter := t.limiter(op); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}
	callCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return fn(callCtx)
}
