package provider

import (
	"fmt"

	"github.com/kursadbilgin/salon-crm/internal/config"
)

// NewFromConfig builds the SMS gateway selected by SMS_PROVIDER.
func NewFromConfig(cfg *config.Config) (Messenger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	switch cfg.SMSProvider {
	case config.SMSProviderTwilio:
		p, err := NewTwilioProvider(TwilioConfig{
			BaseURL:    cfg.TwilioBaseURL,
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.SMSProviderWebhook, "":
		p, err := NewWebhookProvider(cfg.SMSWebhookURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMSProvider)
	}
}

func (p *TwilioProvider) Gateway() string { return config.SMSProviderTwilio }

func (p *WebhookProvider) Gateway() string { return config.SMSProviderWebhook }
