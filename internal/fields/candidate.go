// Package fields defines the typed candidate-value model and the extractor
// family that turns document zones into scored scheme attributes.
package fields

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/segment"
)

// ValueKind tags the variant carried by a Value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindDate   ValueKind = "date"
	KindEnum   ValueKind = "enum"
)

// Value is a tagged variant (string | number | date | enum) so downstream
// validation is exhaustive over known types instead of re-parsing text.
type Value struct {
	Kind ValueKind       `json:"kind"`
	Str  string          `json:"str,omitempty"`
	Num  decimal.Decimal `json:"num,omitempty"`
	Date time.Time       `json:"date,omitempty"`
	Enum string          `json:"enum,omitempty"`
}

func StringValue(s string) Value        { return Value{Kind: KindString, Str: s} }
func NumberValue(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }
func DateValue(t time.Time) Value       { return Value{Kind: KindDate, Date: t} }
func EnumValue(s string) Value          { return Value{Kind: KindEnum, Enum: s} }

// Text renders the carried value for display and audit entries.
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		return v.Num.String()
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindEnum:
		return v.Enum
	default:
		return v.Str
	}
}

// ZoneRef records where a candidate value came from.
type ZoneRef struct {
	Page      int                    `json:"page"`
	StartLine int                    `json:"start_line"`
	Category  constants.ZoneCategory `json:"category"`
}

// RefOf builds a provenance reference for a zone.
func RefOf(z segment.Zone) ZoneRef {
	return ZoneRef{Page: z.Page, StartLine: z.StartLine, Category: z.Category}
}

// CandidateField is one proposed value for a scheme attribute. It is never
// mutated after creation; human corrections append a new candidate with the
// human-override method tag, which supersedes prior ones for the same field.
type CandidateField struct {
	Field      string  `json:"field"`
	Value      Value   `json:"value"`
	Zone       ZoneRef `json:"zone"`
	Confidence float32 `json:"confidence"`
	Method     string  `json:"method"`
}

// Scoring holds the confidence knobs. The defaults are deliberate:
// structurally rigid table rows outrank keyword hits which outrank
// best-effort fallbacks, and free-item candidates are capped strictly below
// the tier-table ceiling because natural-language parsing is noisier.
type Scoring struct {
	TableBase          float32
	KeywordBase        float32
	FallbackBase       float32
	AmbiguityPenalty   float32
	MissingUnitPenalty float32
	Floor              float32
	TierCeiling        float32
	FreeItemCeiling    float32
}

func DefaultScoring() Scoring {
	return Scoring{
		TableBase:          0.90,
		KeywordBase:        0.75,
		FallbackBase:       0.50,
		AmbiguityPenalty:   0.15,
		MissingUnitPenalty: 0.10,
		Floor:              0.05,
		TierCeiling:        0.95,
		FreeItemCeiling:    0.70,
	}
}

// Score computes a candidate confidence: base by method, minus penalties for
// ambiguity (extra competing candidates) and missing units, clamped to
// [Floor, ceiling]. Pass ceiling <= 0 to use the tier ceiling.
func (s Scoring) Score(method string, extraCandidates int, missingUnit bool, ceiling float32) float32 {
	var base float32
	switch method {
	case constants.MethodTablePattern:
		base = s.TableBase
	case constants.MethodKeyword:
		base = s.KeywordBase
	default:
		base = s.FallbackBase
	}
	conf := base - float32(extraCandidates)*s.AmbiguityPenalty
	if missingUnit {
		conf -= s.MissingUnitPenalty
	}
	if conf < s.Floor {
		conf = s.Floor
	}
	if ceiling <= 0 {
		ceiling = s.TierCeiling
	}
	if conf > ceiling {
		conf = ceiling
	}
	return conf
}

// Run is the explicit pipeline-run context passed through every stage:
// product catalog snapshot, confidence threshold, timestamp. No ambient
// globals.
type Run struct {
	ID            uuid.UUID
	Catalog       Catalog
	MinConfidence float32
	Scoring       Scoring
	StartedAt     time.Time
}

// NewRun builds a run context with defaulted knobs.
func NewRun(catalog Catalog, minConfidence float32) Run {
	if minConfidence <= 0 {
		minConfidence = 0.60
	}
	return Run{
		ID:            uuid.New(),
		Catalog:       catalog,
		MinConfidence: minConfidence,
		Scoring:       DefaultScoring(),
		StartedAt:     time.Now().UTC(),
	}
}

// Extractor is polymorphic over {accepts(zone-category), extract(zone)}.
// Extractors never fail on malformed zones; absence of a match simply
// yields zero candidates, deferring "missing required field" to the
// reconciler. Extractors are pure over an immutable Zone and safe to run
// concurrently.
type Extractor interface {
	Name() string
	Accepts(cat constants.ZoneCategory) bool
	Extract(ctx context.Context, run Run, zone segment.Zone) []CandidateField
}
