package queue

import (
	"fmt"
	"strings"
	"time"
)

type TriggerKind string

const (
	TriggerBirthday  TriggerKind = "birthday"
	TriggerScheduled TriggerKind = "scheduled"
)

func (k TriggerKind) IsValid() bool {
	return k == TriggerBirthday || k == TriggerScheduled
}

func ParseTriggerKind(s string) (TriggerKind, error) {
	kind := TriggerKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid trigger kind %q", s)
	}
	return kind, nil
}

// TriggerMessage is the broker payload asking the worker to run one dispatch trigger. RunAt
// overrides the reference time, e.g. to replay a missed birthday run.
type TriggerMessage struct {
	TriggerID     string      `json:"triggerId"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Kind          TriggerKind `json:"kind"`
	RequestedAt   time.Time   `json:"requestedAt"`
	RunAt         *time.Time  `json:"runAt,omitempty"`
}

func (m TriggerMessage) Validate() error {
	if strings.TrimSpace(m.TriggerID) == "" {
		return fmt.Errorf("triggerId is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid trigger kind %q", m.Kind)
	}
	return nil
}

// ReferenceTime is the instant the trigger should evaluate against.
func (m TriggerMessage) ReferenceTime(fallback time.Time) time.Time {
	if m.RunAt != nil && !m.RunAt.IsZero() {
		return *m.RunAt
	}
	return fallback
}
