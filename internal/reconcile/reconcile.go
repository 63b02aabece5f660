// Package reconcile merges extractor candidates into a SchemeDraft and
// checks the schema invariants. Reconcile is a pure function: invariant
// violations become flags on the draft, never hard failures, so a human can
// resolve them during review.
package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
)

// Flag codes attached to drafts for invariant violations.
const (
	FlagDateOrder         = "date-order"
	FlagTierGap           = "tier-gap"
	FlagTierOverlap       = "tier-overlap"
	FlagUnresolvedProduct = "unresolved-product"
	FlagMissingField      = "missing-field"
	FlagLowConfidence     = "low-confidence"
)

// Flag names one unresolved issue on a draft, pointing at the field it
// concerns.
type Flag struct {
	Code   string `json:"code"`
	Field  string `json:"field"`
	Detail string `json:"detail,omitempty"`
}

// ProductRef is a scheme product reference, resolved against the run's
// catalog snapshot where possible.
type ProductRef struct {
	SKU        string `json:"sku"`
	Name       string `json:"name,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// Tier is one reward bracket. Upper == nil means open-ended. PayoutText
// carries the raw cell when the payout could not be parsed as a number.
type Tier struct {
	Lower      decimal.Decimal  `json:"lower"`
	Upper      *decimal.Decimal `json:"upper,omitempty"`
	Unit       string           `json:"unit,omitempty"`
	Payout     decimal.Decimal  `json:"payout"`
	PayoutText string           `json:"payout_text,omitempty"`
}

// FreeItem is one bundled-item clause.
type FreeItem struct {
	Trigger string           `json:"trigger,omitempty"`
	Item    string           `json:"item"`
	Value   *decimal.Decimal `json:"value,omitempty"`
}

// SchemeDraft is the reconciled aggregate pending review. It is only ever
// replaced wholesale (a review edit produces a new draft), never mutated in
// place.
type SchemeDraft struct {
	RunID             uuid.UUID          `json:"run_id"`
	SourceID          string             `json:"source_id"`
	Name              string             `json:"name,omitempty"`
	ValidFrom         *time.Time         `json:"valid_from,omitempty"`
	ValidTo           *time.Time         `json:"valid_to,omitempty"`
	Region            string             `json:"region,omitempty"`
	DealerEligibility string             `json:"dealer_eligibility,omitempty"`
	Products          []ProductRef       `json:"products,omitempty"`
	Tiers             []Tier             `json:"tiers,omitempty"`
	FreeItems         []FreeItem         `json:"free_items,omitempty"`
	Flags             []Flag             `json:"flags,omitempty"`
	Confidence        map[string]float32 `json:"confidence"`
	NeedsReview       bool               `json:"needs_review"`
}

// Reconcile selects the winning candidate per target field, assembles the
// draft, and applies the invariants. Ties on confidence are broken by
// extraction-method strength (table-derived beats text-derived); a
// human-override candidate supersedes everything that came before it.
func Reconcile(run fields.Run, sourceID string, candidates []fields.CandidateField) SchemeDraft {
	chosen := selectWinners(candidates)

	draft := SchemeDraft{
		RunID:      run.ID,
		SourceID:   sourceID,
		Confidence: map[string]float32{},
	}
	for field, c := range chosen {
		draft.Confidence[field] = c.Confidence
	}

	buildMetadata(&draft, chosen)
	buildProducts(&draft, run, chosen)
	buildTiers(&draft, chosen)
	buildFreeItems(&draft, chosen)

	for field, conf := range draft.Confidence {
		if conf < run.MinConfidence {
			draft.Flags = append(draft.Flags, Flag{
				Code: FlagLowConfidence, Field: field,
				Detail: "confidence below review threshold",
			})
		}
	}
	sort.Slice(draft.Flags, func(i, j int) bool {
		if draft.Flags[i].Field != draft.Flags[j].Field {
			return draft.Flags[i].Field < draft.Flags[j].Field
		}
		return draft.Flags[i].Code < draft.Flags[j].Code
	})
	draft.NeedsReview = len(draft.Flags) > 0
	return draft
}

func selectWinners(candidates []fields.CandidateField) map[string]fields.CandidateField {
	chosen := map[string]fields.CandidateField{}
	for _, c := range candidates {
		cur, ok := chosen[field(c)]
		if !ok || beats(c, cur) {
			chosen[field(c)] = c
		}
	}
	return chosen
}

func field(c fields.CandidateField) string { return c.Field }

// beats reports whether a later candidate replaces the current winner.
func beats(c, cur fields.CandidateField) bool {
	cHuman := c.Method == constants.MethodHumanOverride
	curHuman := cur.Method == constants.MethodHumanOverride
	if cHuman && curHuman {
		return true // later override supersedes earlier
	}
	if cHuman != curHuman {
		return cHuman
	}
	if c.Confidence != cur.Confidence {
		return c.Confidence > cur.Confidence
	}
	return constants.MethodRank(c.Method) > constants.MethodRank(cur.Method)
}

func buildMetadata(draft *SchemeDraft, chosen map[string]fields.CandidateField) {
	if c, ok := chosen[fields.FieldName]; ok {
		draft.Name = c.Value.Text()
	} else {
		draft.Flags = append(draft.Flags, Flag{Code: FlagMissingField, Field: fields.FieldName})
	}
	if c, ok := chosen[fields.FieldRegion]; ok {
		draft.Region = c.Value.Text()
	}
	if c, ok := chosen[fields.FieldEligibility]; ok {
		draft.DealerEligibility = c.Value.Text()
	}

	from, hasFrom := dateOf(chosen, fields.FieldValidFrom)
	to, hasTo := dateOf(chosen, fields.FieldValidTo)
	if hasFrom {
		draft.ValidFrom = &from
	} else {
		draft.Flags = append(draft.Flags, Flag{Code: FlagMissingField, Field: fields.FieldValidFrom})
	}
	if hasTo {
		draft.ValidTo = &to
	} else {
		draft.Flags = append(draft.Flags, Flag{Code: FlagMissingField, Field: fields.FieldValidTo})
	}
	if hasFrom && hasTo && from.After(to) {
		draft.Flags = append(draft.Flags, Flag{
			Code: FlagDateOrder, Field: fields.FieldValidFrom,
			Detail: "validity window start after end",
		})
	}
}

func dateOf(chosen map[string]fields.CandidateField, name string) (time.Time, bool) {
	c, ok := chosen[name]
	if !ok || c.Value.Kind != fields.KindDate {
		return time.Time{}, false
	}
	return c.Value.Date, true
}

func buildProducts(draft *SchemeDraft, run fields.Run, chosen map[string]fields.CandidateField) {
	var skus []string
	for name := range chosen {
		if sku, ok := fields.IsSKUField(name); ok {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)
	for _, sku := range skus {
		c := chosen[fields.SKUField(sku)]
		if c.Method == constants.MethodHumanOverride {
			// The reviewer vouches for the reference: the corrected token
			// replaces the extracted one, and an empty value removes the
			// reference entirely.
			corrected := strings.ToUpper(strings.TrimSpace(c.Value.Text()))
			if corrected == "" {
				continue
			}
			ref := ProductRef{SKU: corrected}
			if display, ok := run.Catalog.Resolve(corrected); ok {
				ref.Name = display
			}
			draft.Products = append(draft.Products, ref)
			continue
		}
		ref := ProductRef{SKU: sku}
		if display, ok := run.Catalog.Resolve(sku); ok {
			ref.Name = display
		} else {
			ref.Unresolved = true
			draft.Flags = append(draft.Flags, Flag{
				Code: FlagUnresolvedProduct, Field: fields.SKUField(sku),
				Detail: "no catalog entry for product reference",
			})
		}
		draft.Products = append(draft.Products, ref)
	}
}

var one = decimal.NewFromInt(1)

func buildTiers(draft *SchemeDraft, chosen map[string]fields.CandidateField) {
	rows := map[int]map[string]fields.CandidateField{}
	for name, c := range chosen {
		if row, col, ok := fields.IsTierField(name); ok {
			if rows[row] == nil {
				rows[row] = map[string]fields.CandidateField{}
			}
			rows[row][col] = c
		}
	}
	indices := make([]int, 0, len(rows))
	for i := range rows {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, i := range indices {
		row := rows[i]
		lowerC, ok := row["lower"]
		if !ok || lowerC.Value.Kind != fields.KindNumber {
			continue
		}
		tier := Tier{Lower: lowerC.Value.Num}
		if c, ok := row["upper"]; ok && c.Value.Kind == fields.KindNumber {
			u := c.Value.Num
			tier.Upper = &u
		}
		if c, ok := row["unit"]; ok {
			tier.Unit = c.Value.Text()
		}
		if c, ok := row["payout"]; ok {
			if c.Value.Kind == fields.KindNumber {
				tier.Payout = c.Value.Num
			} else {
				tier.PayoutText = c.Value.Text()
			}
		}
		draft.Tiers = append(draft.Tiers, tier)
	}

	// tiers ordered by lower bound ascending; a gap is flagged, never
	// auto-corrected
	sort.Slice(draft.Tiers, func(a, b int) bool {
		return draft.Tiers[a].Lower.LessThan(draft.Tiers[b].Lower)
	})
	for i := 1; i < len(draft.Tiers); i++ {
		prev, cur := draft.Tiers[i-1], draft.Tiers[i]
		if prev.Upper == nil {
			draft.Flags = append(draft.Flags, Flag{
				Code: FlagTierOverlap, Field: fields.TierField(i, "lower"),
				Detail: "previous tier is open-ended",
			})
			continue
		}
		switch {
		case cur.Lower.LessThanOrEqual(*prev.Upper):
			draft.Flags = append(draft.Flags, Flag{
				Code: FlagTierOverlap, Field: fields.TierField(i, "lower"),
				Detail: "tier ranges overlap",
			})
		case cur.Lower.Sub(*prev.Upper).GreaterThan(one):
			draft.Flags = append(draft.Flags, Flag{
				Code: FlagTierGap, Field: fields.TierField(i, "lower"),
				Detail: "gap between consecutive tier ranges",
			})
		}
	}
}

func buildFreeItems(draft *SchemeDraft, chosen map[string]fields.CandidateField) {
	items := map[int]map[string]fields.CandidateField{}
	for name, c := range chosen {
		if idx, attr, ok := fields.IsFreeItemField(name); ok {
			if items[idx] == nil {
				items[idx] = map[string]fields.CandidateField{}
			}
			items[idx][attr] = c
		}
	}
	indices := make([]int, 0, len(items))
	for i := range items {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, i := range indices {
		attrs := items[i]
		itemC, ok := attrs["item"]
		if !ok {
			continue
		}
		fi := FreeItem{Item: itemC.Value.Text()}
		if c, ok := attrs["trigger"]; ok {
			fi.Trigger = c.Value.Text()
		}
		if c, ok := attrs["value"]; ok && c.Value.Kind == fields.KindNumber {
			v := c.Value.Num
			fi.Value = &v
		}
		draft.FreeItems = append(draft.FreeItems, fi)
	}
}
