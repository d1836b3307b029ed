package entitlements

import "strings"

type Tier string

const (
	TierBasic        Tier = "basic"
	TierAdvanced     Tier = "advanced"
	TierProfessional Tier = "professional"
)

// NormalizeTier maps arbitrary input to a known tier, defaulting to basic.
func NormalizeTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierAdvanced):
		return TierAdvanced
	case string(TierProfessional):
		return TierProfessional
	default:
		return TierBasic
	}
}

// TierRank orders tiers by service level. Used when a user holds windows on
// several tiers at once and a single one must be reported.
func TierRank(tier Tier) int {
	switch tier {
	case TierProfessional:
		return 2
	case TierAdvanced:
		return 1
	default:
		return 0
	}
}

// IsKnownTier reports whether the string names one of the defined tiers.
func IsKnownTier(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierBasic), string(TierAdvanced), string(TierProfessional):
		return true
	default:
		return false
	}
}
