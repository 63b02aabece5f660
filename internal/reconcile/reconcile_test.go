package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
)

func num(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cand(field string, v fields.Value, conf float32, method string) fields.CandidateField {
	return fields.CandidateField{Field: field, Value: v, Confidence: conf, Method: method}
}

// cleanCandidates covers every required field with high confidence and no
// invariant violations.
func cleanCandidates() []fields.CandidateField {
	return []fields.CandidateField{
		cand(fields.FieldName, fields.StringValue("Monsoon Dhamaka"), 0.75, constants.MethodKeyword),
		cand(fields.FieldValidFrom, fields.DateValue(date(2023, 8, 1)), 0.75, constants.MethodKeyword),
		cand(fields.FieldValidTo, fields.DateValue(date(2023, 8, 31)), 0.75, constants.MethodKeyword),
		cand(fields.TierField(0, "lower"), fields.NumberValue(num("0")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(0, "upper"), fields.NumberValue(num("50")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(0, "payout"), fields.NumberValue(num("10")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(1, "lower"), fields.NumberValue(num("51")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(1, "payout"), fields.NumberValue(num("15")), 0.90, constants.MethodTablePattern),
	}
}

func TestReconcileCleanDraftNeedsNoReview(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	draft := Reconcile(run, "sample.pdf", cleanCandidates())

	assert.Empty(t, draft.Flags)
	assert.False(t, draft.NeedsReview)
	assert.Equal(t, "Monsoon Dhamaka", draft.Name)
	require.NotNil(t, draft.ValidFrom)
	require.NotNil(t, draft.ValidTo)
	require.Len(t, draft.Tiers, 2)
	assert.Equal(t, "0", draft.Tiers[0].Lower.String())
	assert.Equal(t, "51", draft.Tiers[1].Lower.String())
	assert.Nil(t, draft.Tiers[1].Upper, "second tier is open-ended but last, no flag")
}

func TestReconcileHigherConfidenceWins(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.FieldName, fields.StringValue("Better Name"), 0.90, constants.MethodKeyword))

	draft := Reconcile(run, "s", cands)
	assert.Equal(t, "Better Name", draft.Name)
}

func TestReconcileMethodRankBreaksTies(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.FieldName, fields.StringValue("Fallback Name"), 0.75, constants.MethodFallback))

	draft := Reconcile(run, "s", cands)
	assert.Equal(t, "Monsoon Dhamaka", draft.Name, "keyword beats fallback at equal confidence")
}

func TestReconcileHumanOverrideSupersedes(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.FieldName, fields.StringValue("Corrected"), 1.0, constants.MethodHumanOverride),
		cand(fields.FieldName, fields.StringValue("Not This"), 0.95, constants.MethodTablePattern))

	draft := Reconcile(run, "s", cands)
	assert.Equal(t, "Corrected", draft.Name)
}

func TestReconcileLaterOverrideWins(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.FieldName, fields.StringValue("First Correction"), 1.0, constants.MethodHumanOverride),
		cand(fields.FieldName, fields.StringValue("Second Correction"), 1.0, constants.MethodHumanOverride))

	draft := Reconcile(run, "s", cands)
	assert.Equal(t, "Second Correction", draft.Name)
}

func TestReconcileMissingFieldsFlagged(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	draft := Reconcile(run, "s", nil)

	codes := map[string]int{}
	flagged := map[string]bool{}
	for _, f := range draft.Flags {
		codes[f.Code]++
		flagged[f.Field] = true
	}
	assert.Equal(t, 3, codes[FlagMissingField])
	assert.True(t, flagged[fields.FieldName])
	assert.True(t, flagged[fields.FieldValidFrom])
	assert.True(t, flagged[fields.FieldValidTo])
	assert.True(t, draft.NeedsReview)
}

func TestReconcileDateOrderViolation(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := cleanCandidates()
	cands = append(cands,
		cand(fields.FieldValidFrom, fields.DateValue(date(2023, 9, 30)), 0.99, constants.MethodKeyword))

	draft := Reconcile(run, "s", cands)
	require.True(t, draft.NeedsReview)
	assert.True(t, hasFlag(draft, FlagDateOrder))
}

func TestReconcileTierOverlapFlagged(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := cleanCandidates()
	// third tier starting inside the first range
	cands = append(cands,
		cand(fields.TierField(2, "lower"), fields.NumberValue(num("40")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(2, "upper"), fields.NumberValue(num("45")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(2, "payout"), fields.NumberValue(num("12")), 0.90, constants.MethodTablePattern))

	draft := Reconcile(run, "s", cands)
	assert.True(t, hasFlag(draft, FlagTierOverlap))
	// ordering by lower bound is preserved even when flagged
	require.Len(t, draft.Tiers, 3)
	assert.Equal(t, "0", draft.Tiers[0].Lower.String())
	assert.Equal(t, "40", draft.Tiers[1].Lower.String())
	assert.Equal(t, "51", draft.Tiers[2].Lower.String())
}

func TestReconcileTierGapFlagged(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := []fields.CandidateField{
		cand(fields.FieldName, fields.StringValue("S"), 0.75, constants.MethodKeyword),
		cand(fields.FieldValidFrom, fields.DateValue(date(2023, 8, 1)), 0.75, constants.MethodKeyword),
		cand(fields.FieldValidTo, fields.DateValue(date(2023, 8, 31)), 0.75, constants.MethodKeyword),
		cand(fields.TierField(0, "lower"), fields.NumberValue(num("0")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(0, "upper"), fields.NumberValue(num("50")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(1, "lower"), fields.NumberValue(num("60")), 0.90, constants.MethodTablePattern),
	}

	draft := Reconcile(run, "s", cands)
	assert.True(t, hasFlag(draft, FlagTierGap))
	// gap is flagged, never auto-corrected
	require.Len(t, draft.Tiers, 2)
	assert.Equal(t, "60", draft.Tiers[1].Lower.String())
}

func TestReconcileAdjacentTiersNotFlagged(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	draft := Reconcile(run, "s", cleanCandidates())
	assert.False(t, hasFlag(draft, FlagTierGap))
	assert.False(t, hasFlag(draft, FlagTierOverlap))
}

func TestReconcileUnresolvedProductFlagged(t *testing.T) {
	catalog := fields.Catalog{"AB-1234": "Convector 1200W"}
	run := fields.NewRun(catalog, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.SKUField("AB-1234"), fields.EnumValue("AB-1234"), 0.75, constants.MethodKeyword),
		cand(fields.SKUField("ZZ-9999"), fields.EnumValue("ZZ-9999"), 0.75, constants.MethodKeyword))

	draft := Reconcile(run, "s", cands)
	require.Len(t, draft.Products, 2)
	assert.Equal(t, "AB-1234", draft.Products[0].SKU)
	assert.Equal(t, "Convector 1200W", draft.Products[0].Name)
	assert.False(t, draft.Products[0].Unresolved)
	assert.True(t, draft.Products[1].Unresolved)
	assert.True(t, hasFlag(draft, FlagUnresolvedProduct))
}

func TestReconcileOverrideResolvesProduct(t *testing.T) {
	catalog := fields.Catalog{"AB-1234": "Convector 1200W"}
	run := fields.NewRun(catalog, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.SKUField("AB-1284"), fields.EnumValue("AB-1284"), 0.50, constants.MethodFallback),
		cand(fields.SKUField("AB-1284"), fields.EnumValue("ab-1234"), 1.0, constants.MethodHumanOverride))

	draft := Reconcile(run, "s", cands)
	require.Len(t, draft.Products, 1)
	assert.Equal(t, "AB-1234", draft.Products[0].SKU)
	assert.Equal(t, "Convector 1200W", draft.Products[0].Name)
	assert.False(t, draft.Products[0].Unresolved)
	assert.False(t, hasFlag(draft, FlagUnresolvedProduct))
	assert.False(t, draft.NeedsReview)
}

func TestReconcileEmptyOverrideDropsProduct(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.SKUField("ZZ-9999"), fields.EnumValue("ZZ-9999"), 0.50, constants.MethodFallback),
		cand(fields.SKUField("ZZ-9999"), fields.EnumValue(""), 1.0, constants.MethodHumanOverride))

	draft := Reconcile(run, "s", cands)
	assert.Empty(t, draft.Products)
	assert.False(t, hasFlag(draft, FlagUnresolvedProduct))
	assert.False(t, draft.NeedsReview)
}

func TestReconcileLowConfidenceFlagged(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	cands := append(cleanCandidates(),
		cand(fields.TierField(1, "upper"), fields.NumberValue(num("100")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(2, "lower"), fields.NumberValue(num("101")), 0.90, constants.MethodTablePattern),
		cand(fields.TierField(2, "payout"), fields.StringValue("TBD"), 0.50, constants.MethodFallback))

	draft := Reconcile(run, "s", cands)
	require.True(t, draft.NeedsReview)
	assert.True(t, hasFlag(draft, FlagLowConfidence))
	// the unparsed payout is kept on the draft, not dropped
	require.Len(t, draft.Tiers, 3)
	assert.Equal(t, "TBD", draft.Tiers[2].PayoutText)
}

func TestReconcileConfidencePerField(t *testing.T) {
	run := fields.NewRun(nil, 0.60)
	draft := Reconcile(run, "s", cleanCandidates())
	assert.InDelta(t, 0.75, draft.Confidence[fields.FieldName], 0.001)
	assert.InDelta(t, 0.90, draft.Confidence[fields.TierField(0, "lower")], 0.001)
}

func hasFlag(d SchemeDraft, code string) bool {
	for _, f := range d.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}
