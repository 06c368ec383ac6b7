package domain

import "time"

// Visit is an append-only record of a customer coming in.
type Visit struct {
	ID         string
	SalonID    string
	CustomerID string
	RecordedBy string
	VisitedAt  time.Time
	CreatedAt  time.Time
}

// VisitOutcome is returned after recording a visit.
type VisitOutcome struct {
	Visit        Visit
	VisitCount   int
	PreviousTier Tier
	Tier         Tier
}

func (o VisitOutcome) Upgraded() bool {
	return o.Tier.Rank() > o.PreviousTier.Rank()
}
