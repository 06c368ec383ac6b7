package provider

import (
	"context"
	"fmt"
	"strings"
)

// Messenger is the outbound SMS transport port consumed by the dispatch workflow.
type Messenger interface {
	Send(ctx context.Context, msg Message) (*Response, error)
}

// GatewayName returns the name m reports through a Gateway method, or "" when it has none.
func GatewayName(m Messenger) string {
	if named, ok := m.(interface{ Gateway() string }); ok {
		return named.Gateway()
	}
	return ""
}

// Message is one rendered SMS.
type Message struct {
	To   string
	Body string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("message recipient is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("message body is required")
	}
	return nil
}

// Response stores gateway call metadata for logging.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
