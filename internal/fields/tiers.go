package fields

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/segment"
)

// TierField returns the candidate field name for one cell of a tier row.
func TierField(row int, col string) string { return fmt.Sprintf("tier[%d].%s", row, col) }

var reTierField = regexp.MustCompile(`^tier\[(\d+)\]\.(lower|upper|payout|unit)$`)

// IsTierField splits a tier candidate field name into row index and column.
func IsTierField(field string) (row int, col string, ok bool) {
	m := reTierField.FindStringSubmatch(field)
	if m == nil {
		return 0, "", false
	}
	fmt.Sscanf(m[1], "%d", &row)
	return row, m[2], true
}

var (
	reRange     = regexp.MustCompile(`(\d[\d,]*)\s*(?:-|–|to)\s*(\d[\d,]*)`)
	reOpenLower = regexp.MustCompile(`(?i)(\d[\d,]*)\s*\+|(?:above|over)\s+(\d[\d,]*)|(\d[\d,]*)\s+(?:and above|or more)`)
	reUnitWord  = regexp.MustCompile(`(?i)\b(units?|pcs?|pieces?|qty|nos?\.?|sets?)\b`)
	reMoney     = regexp.MustCompile(`(?i)(?:₹|\$|rs\.?|inr)\s*([\d,]+(?:\.\d+)?)|([\d,]+(?:\.\d+)?)\s*(?:%|₹|\$|rs\.?|inr)\b`)
	reBareNum   = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	reCellTrim  = regexp.MustCompile(`(?i)^[\s:→=>|-]*(?:units?|pcs?|pieces?|qty|nos?\.?|sets?)?[\s:→=>|-]*`)
)

func parseNumber(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// TierExtractor parses numeric-range rows out of tier-table zones. Each row
// yields one candidate per column; rows with non-numeric payout cells are
// kept as flagged low-confidence candidates rather than excluded.
type TierExtractor struct{}

func (TierExtractor) Name() string { return "tiers" }

func (TierExtractor) Accepts(cat constants.ZoneCategory) bool {
	return cat == constants.ZoneTierTable
}

func (e TierExtractor) Extract(_ context.Context, run Run, zone segment.Zone) []CandidateField {
	var out []CandidateField
	ref := RefOf(zone)
	row := 0
	for _, line := range strings.Split(zone.Text, "\n") {
		cands, ok := e.extractRow(run, ref, line, row)
		if !ok {
			continue
		}
		out = append(out, cands...)
		row++
	}
	return out
}

func (e TierExtractor) extractRow(run Run, ref ZoneRef, line string, row int) ([]CandidateField, bool) {
	var (
		lower, upper decimal.Decimal
		hasUpper     bool
		rest         string
	)
	if m := reRange.FindStringSubmatchIndex(line); m != nil {
		lo, okLo := parseNumber(line[m[2]:m[3]])
		hi, okHi := parseNumber(line[m[4]:m[5]])
		if !okLo || !okHi {
			return nil, false
		}
		lower, upper, hasUpper = lo, hi, true
		rest = line[m[1]:]
	} else if m := reOpenLower.FindStringSubmatchIndex(line); m != nil {
		var tok string
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				tok = line[m[2*g] : m[2*g+1]]
				break
			}
		}
		lo, ok := parseNumber(tok)
		if !ok {
			return nil, false
		}
		lower = lo
		rest = line[m[1]:]
	} else {
		return nil, false
	}

	unit := ""
	if um := reUnitWord.FindString(rest); um != "" {
		unit = strings.ToLower(strings.TrimSuffix(um, "."))
	}
	missingUnit := unit == ""
	conf := run.Scoring.Score(constants.MethodTablePattern, 0, false, run.Scoring.TierCeiling)

	out := []CandidateField{{
		Field: TierField(row, "lower"), Value: NumberValue(lower), Zone: ref,
		Confidence: conf, Method: constants.MethodTablePattern,
	}}
	if hasUpper {
		out = append(out, CandidateField{
			Field: TierField(row, "upper"), Value: NumberValue(upper), Zone: ref,
			Confidence: conf, Method: constants.MethodTablePattern,
		})
	}
	if unit != "" {
		out = append(out, CandidateField{
			Field: TierField(row, "unit"), Value: EnumValue(unit), Zone: ref,
			Confidence: conf, Method: constants.MethodTablePattern,
		})
	}

	// payout cell: everything after the range, minus unit word and arrows
	cell := reCellTrim.ReplaceAllString(rest, "")
	if m := reMoney.FindStringSubmatch(cell); m != nil {
		tok := m[1]
		if tok == "" {
			tok = m[2]
		}
		if payout, ok := parseNumber(tok); ok {
			out = append(out, CandidateField{
				Field: TierField(row, "payout"), Value: NumberValue(payout), Zone: ref,
				Confidence: run.Scoring.Score(constants.MethodTablePattern, 0, missingUnit, run.Scoring.TierCeiling),
				Method:     constants.MethodTablePattern,
			})
			return out, true
		}
	}
	if m := reBareNum.FindString(cell); m != "" {
		if payout, ok := parseNumber(m); ok {
			out = append(out, CandidateField{
				Field: TierField(row, "payout"), Value: NumberValue(payout), Zone: ref,
				Confidence: run.Scoring.Score(constants.MethodTablePattern, 0, missingUnit, run.Scoring.TierCeiling),
				Method:     constants.MethodTablePattern,
			})
			return out, true
		}
	}
	// non-numeric payout cell ("TBD"): kept, flagged low-confidence by the
	// fallback base score instead of being dropped from the table
	if cell = strings.Trim(cell, " .;|"); cell != "" {
		out = append(out, CandidateField{
			Field: TierField(row, "payout"), Value: StringValue(cell), Zone: ref,
			Confidence: run.Scoring.Score(constants.MethodFallback, 0, missingUnit, run.Scoring.TierCeiling),
			Method:     constants.MethodFallback,
		})
	}
	return out, true
}
