package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const DefaultTwilioBaseURL = "https://api.twilio.com"

type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// TwilioProvider sends SMS through the Twilio Messages API.
type TwilioProvider struct {
	client     *resty.Client
	accountSID string
	fromNumber string
}

func NewTwilioProvider(cfg TwilioConfig) (*TwilioProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultHTTPTimeout)
	client.SetRetryCount(0)

	return NewTwilioProviderWithClient(cfg, client)
}

func NewTwilioProviderWithClient(cfg TwilioConfig, client *resty.Client) (*TwilioProvider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid twilio base url: %w", err)
	}
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, fmt.Errorf("twilio account sid and auth token are required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, fmt.Errorf("twilio from number is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultHTTPTimeout)
	}
	client.SetRetryCount(0)
	client.SetBaseURL(baseURL)
	client.SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	return &TwilioProvider{
		client:     client,
		accountSID: cfg.AccountSID,
		fromNumber: cfg.FromNumber,
	}, nil
}

func (p *TwilioProvider) Send(ctx context.Context, msg Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	var created twilioMessage
	var failure twilioError

	response, err := p.client.R().
		SetContext(ctx).
		SetPathParam("accountSid", p.accountSID).
		SetFormData(map[string]string{
			"To":   msg.To,
			"From": p.fromNumber,
			"Body": msg.Body,
		}).
		SetResult(&created).
		SetError(&failure).
		Post("/2010-04-01/Accounts/{accountSid}/Messages.json")
	if err != nil {
		return nil, requestFailed(err)
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       created.Status,
			MessageID:  created.SID,
		}, nil
	}

	message := strings.TrimSpace(failure.Message)
	if failure.Code != 0 {
		message = fmt.Sprintf("twilio error %d: %s", failure.Code, message)
	}
	if message == "" {
		message = strings.TrimSpace(response.String())
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, message),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
