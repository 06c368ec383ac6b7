package domain

import (
	"fmt"
	"strings"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusScheduled CampaignStatus = "SCHEDULED"
	CampaignStatusSending   CampaignStatus = "SENDING"
	CampaignStatusSent      CampaignStatus = "SENT"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusSending, CampaignStatusSent:
		return true
	}
	return false
}

// Claimable reports whether a dispatch may move the campaign into SENDING.
func (s CampaignStatus) Claimable() bool {
	return s == CampaignStatusDraft || s == CampaignStatusScheduled
}

func ParseCampaignStatusFromString(s string) (CampaignStatus, error) {
	st := CampaignStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid campaign status %q", ErrValidation, s)
	}
	return st, nil
}

// CampaignType tags what created the campaign.
type CampaignType string

const (
	CampaignTypeManual   CampaignType = "MANUAL"
	CampaignTypeBirthday CampaignType = "BIRTHDAY"
)

func (t CampaignType) String() string { return string(t) }

func (t CampaignType) IsValid() bool {
	switch t {
	case CampaignTypeManual, CampaignTypeBirthday:
		return true
	}
	return false
}

// RecipientStatus represents the per-recipient delivery state.
type RecipientStatus string

const (
	RecipientStatusPending   RecipientStatus = "PENDING"
	RecipientStatusSent      RecipientStatus = "SENT"
	RecipientStatusDelivered RecipientStatus = "DELIVERED"
	RecipientStatusOpened    RecipientStatus = "OPENED"
	RecipientStatusFailed    RecipientStatus = "FAILED"
)

func (s RecipientStatus) String() string { return string(s) }

func (s RecipientStatus) IsValid() bool {
	switch s {
	case RecipientStatusPending, RecipientStatusSent, RecipientStatusDelivered, RecipientStatusOpened, RecipientStatusFailed:
		return true
	}
	return false
}

// RecipientSendFailed is the error recorded on a recipient whose transport call failed.
const RecipientSendFailed = "Failed to send SMS"

// Campaign is a single SMS marketing send owned by a salon.
type Campaign struct {
	ID          string
	SalonID     string
	Name        string
	Message     string
	Type        CampaignType
	Status      CampaignStatus
	ScheduledAt *time.Time
	SentAt      *time.Time
	CreatedBy   *string
	DedupeKey   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.SalonID) == "" {
		return fmt.Errorf("%w: salon id is required", ErrValidation)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: invalid campaign type %q", ErrValidation, c.Type)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: invalid campaign status %q", ErrValidation, c.Status)
	}
	if c.Status == CampaignStatusScheduled && c.ScheduledAt == nil {
		return fmt.Errorf("%w: scheduled campaign requires scheduledAt", ErrValidation)
	}
	return ValidateMessageTemplate(c.Message)
}

// CampaignRecipient is one message to one customer. Phone and CustomerName are snapshots taken
// when the recipient row is created.
type CampaignRecipient struct {
	ID           string
	CampaignID   string
	CustomerID   string
	Phone        string
	CustomerName string
	Status       RecipientStatus
	SentAt       *time.Time
	DeliveredAt  *time.Time
	OpenedAt     *time.Time
	Error        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DispatchResult summarises one dispatch run of a campaign. Unrecorded counts recipients the
// gateway accepted but whose SENT mark could not be persisted; they stay PENDING and the campaign
// is left SENDING so no later run messages them again.
type DispatchResult struct {
	CampaignID string
	Status     CampaignStatus
	Total      int
	Sent       int
	Failed     int
	Unrecorded int
}
