package domain

import (
	"fmt"
	"strings"
)

// SelectionKind is the closed set of recipient selection strategies.
type SelectionKind string

const (
	SelectionBirthday SelectionKind = "BIRTHDAY"
	SelectionInactive SelectionKind = "INACTIVE"
	SelectionExplicit SelectionKind = "EXPLICIT"
)

func (k SelectionKind) String() string { return string(k) }

func (k SelectionKind) IsValid() bool {
	switch k {
	case SelectionBirthday, SelectionInactive, SelectionExplicit:
		return true
	}
	return false
}

func ParseSelectionKindFromString(s string) (SelectionKind, error) {
	k := SelectionKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid selection kind %q", ErrValidation, s)
	}
	return k, nil
}

const (
	DefaultInactiveDays  = 30
	MaxInactiveDays      = 3650
	MaxExplicitCustomers = 1000
)

// SelectionRule picks the customers of a campaign. Only the fields of its Kind are meaningful.
type SelectionRule struct {
	Kind         SelectionKind
	InactiveDays int
	CustomerIDs  []string
}

func BirthdayRule() SelectionRule {
	return SelectionRule{Kind: SelectionBirthday}
}

func InactiveRule(days int) SelectionRule {
	return SelectionRule{Kind: SelectionInactive, InactiveDays: days}
}

func ExplicitRule(customerIDs ...string) SelectionRule {
	return SelectionRule{Kind: SelectionExplicit, CustomerIDs: customerIDs}
}

// Normalize fills defaults and deduplicates explicit ids while keeping their first-seen order.
func (r SelectionRule) Normalize(defaultInactiveDays int) SelectionRule {
	out := SelectionRule{Kind: r.Kind}
	switch r.Kind {
	case SelectionInactive:
		out.InactiveDays = r.InactiveDays
		if out.InactiveDays == 0 {
			out.InactiveDays = defaultInactiveDays
		}
		if out.InactiveDays == 0 {
			out.InactiveDays = DefaultInactiveDays
		}
	case SelectionExplicit:
		seen := make(map[string]struct{}, len(r.CustomerIDs))
		out.CustomerIDs = make([]string, 0, len(r.CustomerIDs))
		for _, id := range r.CustomerIDs {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out.CustomerIDs = append(out.CustomerIDs, id)
		}
	}
	return out
}

func (r SelectionRule) Validate() error {
	switch r.Kind {
	case SelectionBirthday:
		return nil
	case SelectionInactive:
		if r.InactiveDays < 1 || r.InactiveDays > MaxInactiveDays {
			return fmt.Errorf("%w: inactiveDays must be between 1 and %d", ErrValidation, MaxInactiveDays)
		}
		return nil
	case SelectionExplicit:
		if len(r.CustomerIDs) == 0 {
			return fmt.Errorf("%w: explicit selection requires at least one customer id", ErrValidation)
		}
		if len(r.CustomerIDs) > MaxExplicitCustomers {
			return fmt.Errorf("%w: explicit selection exceeds %d customers", ErrValidation, MaxExplicitCustomers)
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid selection kind %q", ErrValidation, r.Kind)
	}
}
