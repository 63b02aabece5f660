package fields

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/segment"
)

// FreeItemField returns the candidate field name for one attribute of a
// free-item clause.
func FreeItemField(idx int, attr string) string { return fmt.Sprintf("free_item[%d].%s", idx, attr) }

var reFreeItemField = regexp.MustCompile(`^free_item\[(\d+)\]\.(item|trigger|value)$`)

// IsFreeItemField splits a free-item candidate field name into index and attribute.
func IsFreeItemField(field string) (idx int, attr string, ok bool) {
	m := reFreeItemField.FindStringSubmatch(field)
	if m == nil {
		return 0, "", false
	}
	fmt.Sscanf(m[1], "%d", &idx)
	return idx, m[2], true
}

var (
	reClauseSplit = regexp.MustCompile(`[;.]\s+|[;.]$|\n`)
	// currency and count abbreviations whose trailing dot would otherwise
	// split a clause mid-sentence
	reAbbrevDot = regexp.MustCompile(`(?i)\b(rs|nos?)\.`)
	reTrigger   = regexp.MustCompile(`(?i)\b(?:free|complimentary|bundled|bundle offer)\b`)
	// noun phrase following the trigger keyword, cut at a connective
	reItemPhrase = regexp.MustCompile(`(?i)\b(?:free|complimentary|bundled(?:\s+with)?|bundle offer\s*[:\-]?)\s+([a-z0-9][a-z0-9 '&-]*?)(?:\s+(?:on|with|for|when|upon|per|in|against|worth|valued?)\b|[.,;]|$)`)
	reTierRef     = regexp.MustCompile(`(?i)tier\s*\d+`)
	reOnClause    = regexp.MustCompile(`(?i)\b(?:on|with|for|when|upon|against)\s+(.+)$`)
	reWorthAmount = regexp.MustCompile(`(?i)(?:worth|valued?\s*(?:at)?)\s*(?:₹|\$|rs\.?|inr)?\s*([\d,]+(?:\.\d+)?)`)
)

// FreeItemExtractor matches clause sentences containing trigger keywords
// plus a noun-phrase heuristic for the item name. Its confidence ceiling is
// deliberately below the tier-table ceiling: natural-language parsing is
// inherently noisier than table rows, and that asymmetry must survive
// reconciliation.
type FreeItemExtractor struct{}

func (FreeItemExtractor) Name() string { return "free-items" }

func (FreeItemExtractor) Accepts(cat constants.ZoneCategory) bool {
	return cat == constants.ZoneFreeItems
}

func (e FreeItemExtractor) Extract(_ context.Context, run Run, zone segment.Zone) []CandidateField {
	var out []CandidateField
	ref := RefOf(zone)
	ceiling := run.Scoring.FreeItemCeiling
	idx := 0
	for _, clause := range reClauseSplit.Split(reAbbrevDot.ReplaceAllString(zone.Text, "$1"), -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" || !reTrigger.MatchString(clause) {
			continue
		}
		m := reItemPhrase.FindStringSubmatch(clause)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		if item == "" {
			continue
		}
		conf := run.Scoring.Score(constants.MethodKeyword, 0, false, ceiling)
		out = append(out, CandidateField{
			Field: FreeItemField(idx, "item"), Value: StringValue(item), Zone: ref,
			Confidence: conf, Method: constants.MethodKeyword,
		})

		if trig := e.trigger(clause); trig != "" {
			out = append(out, CandidateField{
				Field: FreeItemField(idx, "trigger"), Value: StringValue(trig), Zone: ref,
				Confidence: conf, Method: constants.MethodKeyword,
			})
		}
		if wm := reWorthAmount.FindStringSubmatch(clause); wm != nil {
			if v, ok := parseNumber(wm[1]); ok {
				out = append(out, CandidateField{
					Field: FreeItemField(idx, "value"), Value: NumberValue(v), Zone: ref,
					Confidence: run.Scoring.Score(constants.MethodKeyword, 0, false, ceiling),
					Method:     constants.MethodKeyword,
				})
			}
		}
		idx++
	}
	return out
}

// trigger prefers an explicit tier reference; otherwise the condition
// clause after the connective, as written.
func (e FreeItemExtractor) trigger(clause string) string {
	if t := reTierRef.FindString(clause); t != "" {
		return normalizeTierRef(t)
	}
	if m := reOnClause.FindStringSubmatch(clause); m != nil {
		return strings.TrimSpace(strings.Trim(m[1], " .;,"))
	}
	return ""
}

func normalizeTierRef(t string) string {
	digits := strings.TrimSpace(regexp.MustCompile(`\d+`).FindString(t))
	return "Tier " + digits
}
