package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 10
	bucketPrefix             = "salon-crm:sms-bucket"
	bucketWindow             = time.Second
	minRetryDelay            = 5 * time.Millisecond
)

// reserveScript takes one slot in the bucket's open window. It returns 0 when the slot was
// granted, otherwise the milliseconds left until the window closes.
var reserveScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current <= tonumber(ARGV[1]) then
  return 0
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
return ttl
`)

var _ ratelimit.RateLimiter = (*SMSRateLimiter)(nil)

// SMSRateLimiter throttles outbound SMS per gateway bucket for every process sharing Redis. A
// bucket admits its limit per one-second window opened by the first send; Wait sleeps until
// that window closes instead of polling.
type SMSRateLimiter struct {
	client       *goredis.Client
	defaultLimit int64
	limits       map[string]int64
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewSMSRateLimiter builds a limiter allowing limitPerSec sends per bucket. gatewayLimits
// overrides the limit for the named gateways' buckets.
func NewSMSRateLimiter(client *goredis.Client, limitPerSec int, gatewayLimits map[string]int) (*SMSRateLimiter, error) {
	return newSMSRateLimiter(client, limitPerSec, gatewayLimits, sleepWithContext)
}

func newSMSRateLimiter(
	client *goredis.Client,
	limitPerSec int,
	gatewayLimits map[string]int,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*SMSRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	defaultLimit := int64(limitPerSec)
	if defaultLimit <= 0 {
		defaultLimit = defaultLimitPerSec
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	limits := make(map[string]int64, len(gatewayLimits))
	for gateway, n := range gatewayLimits {
		if n <= 0 {
			return nil, fmt.Errorf("rate limit for gateway %q must be positive", gateway)
		}
		limits[ratelimit.GatewayKey(gateway)] = int64(n)
	}

	return &SMSRateLimiter{
		client:       client,
		defaultLimit: defaultLimit,
		limits:       limits,
		sleep:        sleepFn,
	}, nil
}

// Allow takes a slot without waiting and reports whether one was free.
func (r *SMSRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	delay, err := r.reserve(ctx, key)
	if err != nil {
		return false, err
	}
	return delay == 0, nil
}

// Wait blocks until the bucket grants a slot or ctx is done.
func (r *SMSRateLimiter) Wait(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		delay, err := r.reserve(ctx, key)
		if err != nil {
			return err
		}
		if delay == 0 {
			return nil
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (r *SMSRateLimiter) reserve(ctx context.Context, key string) (time.Duration, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("rate limiter is not initialized")
	}

	bucket := strings.ToLower(strings.TrimSpace(key))
	if bucket == "" {
		return 0, fmt.Errorf("rate limit key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ms, err := reserveScript.Run(ctx, r.client,
		[]string{bucketPrefix + ":" + bucket},
		r.limitFor(bucket),
		bucketWindow.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve sms slot: %w", err)
	}
	if ms <= 0 {
		return 0, nil
	}

	delay := time.Duration(ms) * time.Millisecond
	if delay < minRetryDelay {
		delay = minRetryDelay
	}
	return delay, nil
}

func (r *SMSRateLimiter) limitFor(bucket string) int64 {
	if n, ok := r.limits[bucket]; ok {
		return n
	}
	return r.defaultLimit
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
