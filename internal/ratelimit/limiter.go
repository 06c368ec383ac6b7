package ratelimit

import (
	"context"
	"strings"
)

// SMSKey is the bucket for sends through a gateway that does not name itself.
const SMSKey = "sms"

// GatewayKey is the bucket shared by every send through the named SMS gateway, across API and
// worker processes.
func GatewayKey(gateway string) string {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	if gateway == "" {
		return SMSKey
	}
	return SMSKey + ":" + gateway
}

// RateLimiter throttles outbound sends per bucket key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
