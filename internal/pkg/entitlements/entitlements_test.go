package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTier(t *testing.T) {
	assert.Equal(t, TierAdvanced, NormalizeTier("advanced"))
	assert.Equal(t, TierProfessional, NormalizeTier(" Professional "))
	assert.Equal(t, TierBasic, NormalizeTier("basic"))
	assert.Equal(t, TierBasic, NormalizeTier(""))
	assert.Equal(t, TierBasic, NormalizeTier("enterprise"))
}

func TestTierRank(t *testing.T) {
	assert.Greater(t, TierRank(TierProfessional), TierRank(TierAdvanced))
	assert.Greater(t, TierRank(TierAdvanced), TierRank(TierBasic))
}

func TestIsKnownTier(t *testing.T) {
	assert.True(t, IsKnownTier("basic"))
	assert.True(t, IsKnownTier("ADVANCED"))
	assert.False(t, IsKnownTier("enterprise"))
	assert.False(t, IsKnownTier(""))
}
