package domain

import "testing"

func TestClassifyTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		visits int
		want   Tier
	}{
		{visits: -3, want: TierBronze},
		{visits: 0, want: TierBronze},
		{visits: 9, want: TierBronze},
		{visits: 10, want: TierSilver},
		{visits: 19, want: TierSilver},
		{visits: 20, want: TierGold},
		{visits: 29, want: TierGold},
		{visits: 30, want: TierPlatinum},
		{visits: 500, want: TierPlatinum},
	}

	for _, tt := range tests {
		if got := ClassifyTier(tt.visits); got != tt.want {
			t.Errorf("ClassifyTier(%d) = %s, want %s", tt.visits, got, tt.want)
		}
	}
}

func TestClassifyTierMonotonic(t *testing.T) {
	t.Parallel()

	prev := ClassifyTier(0).Rank()
	for v := 1; v <= 100; v++ {
		rank := ClassifyTier(v).Rank()
		if rank < prev {
			t.Fatalf("ClassifyTier(%d) rank = %d, dropped below %d", v, rank, prev)
		}
		prev = rank
	}
}

func TestBenefitsOf(t *testing.T) {
	t.Parallel()

	want := map[Tier]int{
		TierBronze:   10,
		TierSilver:   15,
		TierGold:     20,
		TierPlatinum: 25,
	}
	for tier, discount := range want {
		got := BenefitsOf(tier)
		if got.DiscountPercent != discount {
			t.Errorf("BenefitsOf(%s).DiscountPercent = %d, want %d", tier, got.DiscountPercent, discount)
		}
		if got.DisplayName == "" {
			t.Errorf("BenefitsOf(%s).DisplayName is empty", tier)
		}
	}

	if got := BenefitsOf(Tier("DIAMOND")); got != (TierBenefits{}) {
		t.Fatalf("BenefitsOf(unknown) = %+v, want zero value", got)
	}
}

func TestNextTierChain(t *testing.T) {
	t.Parallel()

	seen := map[Tier]bool{}
	current := TierBronze
	for {
		if seen[current] {
			t.Fatalf("cycle detected at %s", current)
		}
		seen[current] = true

		next, ok := NextTier(current)
		if !ok {
			if current != TierPlatinum {
				t.Fatalf("chain ended at %s, want PLATINUM", current)
			}
			break
		}
		if next.Rank() <= current.Rank() {
			t.Fatalf("NextTier(%s) = %s is not strictly higher", current, next)
		}
		current = next
	}

	if len(seen) != 4 {
		t.Fatalf("visited %d tiers, want 4", len(seen))
	}
	if _, ok := NextTier(TierPlatinum); ok {
		t.Fatal("NextTier(PLATINUM) should report none")
	}
}

func TestLoyaltyFor(t *testing.T) {
	t.Parallel()

	status := LoyaltyFor(14)
	if status.Tier != TierSilver {
		t.Fatalf("Tier = %s, want SILVER", status.Tier)
	}
	if status.NextTier == nil || *status.NextTier != TierGold {
		t.Fatalf("NextTier = %v, want GOLD", status.NextTier)
	}
	if status.VisitsToNextTier != 6 {
		t.Fatalf("VisitsToNextTier = %d, want 6", status.VisitsToNextTier)
	}

	top := LoyaltyFor(42)
	if top.NextTier != nil {
		t.Fatalf("NextTier = %v, want nil for PLATINUM", *top.NextTier)
	}
	if top.VisitsToNextTier != 0 {
		t.Fatalf("VisitsToNextTier = %d, want 0", top.VisitsToNextTier)
	}
}

func TestVisitOutcomeUpgraded(t *testing.T) {
	t.Parallel()

	if !(VisitOutcome{PreviousTier: TierBronze, Tier: TierSilver}).Upgraded() {
		t.Fatal("BRONZE -> SILVER should be an upgrade")
	}
	if (VisitOutcome{PreviousTier: TierGold, Tier: TierGold}).Upgraded() {
		t.Fatal("GOLD -> GOLD should not be an upgrade")
	}
}
