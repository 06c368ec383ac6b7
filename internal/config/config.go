package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	SMSProviderTwilio  = "twilio"
	SMSProviderWebhook = "webhook"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	JWTSecret   string `env:"JWT_SECRET,required=true"`
	CronSecret  string `env:"CRON_SECRET,required=true"`

	SMSProvider      string `env:"SMS_PROVIDER,default=webhook"`
	SMSWebhookURL    string `env:"SMS_WEBHOOK_URL"`
	TwilioBaseURL    string `env:"TWILIO_BASE_URL,default=https://api.twilio.com"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`

	SMSRateLimitPerSec    int           `env:"SMS_RATE_LIMIT_PER_SEC,default=10"`
	SMSGatewayRateLimits  string        `env:"SMS_GATEWAY_RATE_LIMITS"`
	SendTimeout           time.Duration `env:"SEND_TIMEOUT,default=10s"`
	InactivityDays        int           `env:"INACTIVITY_DAYS,default=30"`
	ScheduledScanInterval time.Duration `env:"SCHEDULED_SCAN_INTERVAL,default=60s"`
	DedupeRecurring       bool          `env:"DEDUPE_RECURRING,default=false"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=1h"`

	WorkerPrefetch int `env:"WORKER_PREFETCH,default=1"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.SMSProvider = strings.ToLower(strings.TrimSpace(cfg.SMSProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other, mainly the selected SMS gateway.
func (c *Config) Validate() error {
	switch c.SMSProvider {
	case SMSProviderWebhook:
		if strings.TrimSpace(c.SMSWebhookURL) == "" {
			return fmt.Errorf("invalid config: SMS_WEBHOOK_URL is required for the webhook provider")
		}
	case SMSProviderTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" {
			return fmt.Errorf("invalid config: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required for the twilio provider")
		}
	default:
		return fmt.Errorf("invalid config: unknown SMS_PROVIDER %q", c.SMSProvider)
	}

	if c.SMSRateLimitPerSec <= 0 {
		return fmt.Errorf("invalid config: SMS_RATE_LIMIT_PER_SEC must be positive")
	}
	if _, err := c.GatewayRateLimits(); err != nil {
		return err
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("invalid config: SEND_TIMEOUT must be positive")
	}
	if c.InactivityDays <= 0 {
		return fmt.Errorf("invalid config: INACTIVITY_DAYS must be positive")
	}
	if c.ScheduledScanInterval < 0 {
		return fmt.Errorf("invalid config: SCHEDULED_SCAN_INTERVAL must not be negative")
	}
	return nil
}

// GatewayRateLimits parses SMS_GATEWAY_RATE_LIMITS, a comma separated list of gateway=perSec
// overrides such as "twilio=1,webhook=50".
func (c *Config) GatewayRateLimits() (map[string]int, error) {
	limits := make(map[string]int)
	for _, entry := range strings.Split(c.SMSGatewayRateLimits, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		gateway, rawLimit, ok := strings.Cut(entry, "=")
		gateway = strings.ToLower(strings.TrimSpace(gateway))
		limit, err := strconv.Atoi(strings.TrimSpace(rawLimit))
		if !ok || gateway == "" || err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid config: SMS_GATEWAY_RATE_LIMITS entry %q must be gateway=positive integer", entry)
		}
		limits[gateway] = limit
	}
	return limits, nil
}
