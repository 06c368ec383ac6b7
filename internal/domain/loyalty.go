package domain

// Tier is the loyalty classification derived from a customer's lifetime visit count.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

func (t Tier) String() string { return string(t) }

// Visit-count thresholds; each tier covers [threshold, next threshold).
const (
	SilverVisitThreshold   = 10
	GoldVisitThreshold     = 20
	PlatinumVisitThreshold = 30
)

// TierBenefits describes what a tier grants.
type TierBenefits struct {
	DiscountPercent int
	DisplayName     string
}

var tierOrder = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}

var tierBenefits = map[Tier]TierBenefits{
	TierBronze:   {DiscountPercent: 10, DisplayName: "Bronze"},
	TierSilver:   {DiscountPercent: 15, DisplayName: "Silver"},
	TierGold:     {DiscountPercent: 20, DisplayName: "Gold"},
	TierPlatinum: {DiscountPercent: 25, DisplayName: "Platinum"},
}

// ClassifyTier maps a visit count to its tier. Negative counts are treated as zero.
func ClassifyTier(visitCount int) Tier {
	switch {
	case visitCount >= PlatinumVisitThreshold:
		return TierPlatinum
	case visitCount >= GoldVisitThreshold:
		return TierGold
	case visitCount >= SilverVisitThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// BenefitsOf returns the benefits of a tier. Unknown tiers get the zero value.
func BenefitsOf(tier Tier) TierBenefits {
	return tierBenefits[tier]
}

// NextTier returns the tier above t, or false when t is the top tier.
func NextTier(t Tier) (Tier, bool) {
	for i, candidate := range tierOrder {
		if candidate == t && i+1 < len(tierOrder) {
			return tierOrder[i+1], true
		}
	}
	return "", false
}

// Rank orders tiers from 0 (BRONZE) upward; unknown tiers rank -1.
func (t Tier) Rank() int {
	for i, candidate := range tierOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

func tierThreshold(t Tier) int {
	switch t {
	case TierSilver:
		return SilverVisitThreshold
	case TierGold:
		return GoldVisitThreshold
	case TierPlatinum:
		return PlatinumVisitThreshold
	default:
		return 0
	}
}

// LoyaltyStatus is the loyalty view of a single customer.
type LoyaltyStatus struct {
	VisitCount       int
	Tier             Tier
	Benefits         TierBenefits
	NextTier         *Tier
	VisitsToNextTier int
}

func LoyaltyFor(visitCount int) LoyaltyStatus {
	if visitCount < 0 {
		visitCount = 0
	}

	tier := ClassifyTier(visitCount)
	status := LoyaltyStatus{
		VisitCount: visitCount,
		Tier:       tier,
		Benefits:   BenefitsOf(tier),
	}
	if next, ok := NextTier(tier); ok {
		status.NextTier = &next
		status.VisitsToNextTier = tierThreshold(next) - visitCount
	}
	return status
}
