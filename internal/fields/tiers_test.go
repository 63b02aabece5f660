package fields

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/segment"
)

func tierZone(text string) segment.Zone {
	return segment.Zone{Category: constants.ZoneTierTable, Page: 0, StartLine: 5, Text: text}
}

func TestTierRowWithRangeUnitAndMoneyPayout(t *testing.T) {
	run := NewRun(nil, 0)
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone("Tier 1: 0-50 units -> $10"))

	got := byField(cands)
	require.Contains(t, got, TierField(0, "lower"))
	require.Contains(t, got, TierField(0, "upper"))
	require.Contains(t, got, TierField(0, "unit"))
	require.Contains(t, got, TierField(0, "payout"))

	assert.Equal(t, "0", got[TierField(0, "lower")].Value.Num.String())
	assert.Equal(t, "50", got[TierField(0, "upper")].Value.Num.String())
	assert.Equal(t, "units", got[TierField(0, "unit")].Value.Enum)
	assert.Equal(t, "10", got[TierField(0, "payout")].Value.Num.String())
	assert.Equal(t, constants.MethodTablePattern, got[TierField(0, "payout")].Method)
	assert.InDelta(t, 0.90, got[TierField(0, "payout")].Confidence, 0.001)
}

func TestTierOpenEndedRow(t *testing.T) {
	run := NewRun(nil, 0)
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone("101+ units Rs. 20"))

	got := byField(cands)
	require.Contains(t, got, TierField(0, "lower"))
	assert.NotContains(t, got, TierField(0, "upper"))
	assert.Equal(t, "101", got[TierField(0, "lower")].Value.Num.String())
	assert.Equal(t, "20", got[TierField(0, "payout")].Value.Num.String())
}

func TestTierRowsNumberedInOrder(t *testing.T) {
	run := NewRun(nil, 0)
	text := "Tier 1: 0-50 units $10\nTier 2: 51-100 units $15\n101+ units $20"
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone(text))

	got := byField(cands)
	assert.Equal(t, "0", got[TierField(0, "lower")].Value.Num.String())
	assert.Equal(t, "51", got[TierField(1, "lower")].Value.Num.String())
	assert.Equal(t, "101", got[TierField(2, "lower")].Value.Num.String())
}

func TestTierMissingUnitPenalizesPayout(t *testing.T) {
	run := NewRun(nil, 0)
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone("0-50 $10"))

	got := byField(cands)
	assert.NotContains(t, got, TierField(0, "unit"))
	// table base 0.90 minus missing-unit penalty 0.10
	assert.InDelta(t, 0.80, got[TierField(0, "payout")].Confidence, 0.001)
}

func TestTierNonNumericPayoutKeptAsFallback(t *testing.T) {
	run := NewRun(nil, 0)
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone("Tier 3: 101-200 units TBD"))

	got := byField(cands)
	require.Contains(t, got, TierField(0, "payout"))
	c := got[TierField(0, "payout")]
	assert.Equal(t, KindString, c.Value.Kind)
	assert.Equal(t, "TBD", c.Value.Str)
	assert.Equal(t, constants.MethodFallback, c.Method)
	assert.Less(t, c.Confidence, run.MinConfidence, "unparsed payout must fall below review threshold")
}

func TestTierCommaGroupedNumbers(t *testing.T) {
	run := NewRun(nil, 0)
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone("1,000-5,000 units Rs. 2,500"))

	got := byField(cands)
	assert.Equal(t, "1000", got[TierField(0, "lower")].Value.Num.String())
	assert.Equal(t, "5000", got[TierField(0, "upper")].Value.Num.String())
	assert.Equal(t, "2500", got[TierField(0, "payout")].Value.Num.String())
}

func TestTierNonRowLinesIgnored(t *testing.T) {
	run := NewRun(nil, 0)
	cands := TierExtractor{}.Extract(context.Background(), run, tierZone("Quantity    Payout"))
	assert.Empty(t, cands)
}

func TestRenumberShiftsRowsAcrossZones(t *testing.T) {
	first := []CandidateField{
		{Field: TierField(0, "lower")},
		{Field: TierField(1, "lower")},
		{Field: FreeItemField(0, "item")},
	}
	second := []CandidateField{
		{Field: TierField(0, "lower")},
		{Field: FreeItemField(0, "item")},
		{Field: FieldName},
	}

	out, tiers, frees := Renumber(first, 0, 0)
	assert.Equal(t, 2, tiers)
	assert.Equal(t, 1, frees)
	assert.Equal(t, TierField(1, "lower"), out[1].Field)

	out, tiers, frees = Renumber(second, tiers, frees)
	assert.Equal(t, TierField(2, "lower"), out[0].Field)
	assert.Equal(t, FreeItemField(1, "item"), out[1].Field)
	assert.Equal(t, FieldName, out[2].Field, "non-indexed fields stay untouched")
	assert.Equal(t, 3, tiers)
	assert.Equal(t, 2, frees)
}
