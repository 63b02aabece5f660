package fields

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/segment"
)

// Field names emitted by the metadata extractor.
const (
	FieldName        = "name"
	FieldValidFrom   = "valid_from"
	FieldValidTo     = "valid_to"
	FieldRegion      = "region"
	FieldEligibility = "dealer_eligibility"
	skuFieldPrefix   = "sku:"
)

// SKUField returns the candidate field name for a product token.
func SKUField(sku string) string { return skuFieldPrefix + strings.ToUpper(sku) }

// IsSKUField splits a sku candidate field name back into its token.
func IsSKUField(field string) (string, bool) {
	if strings.HasPrefix(field, skuFieldPrefix) {
		return strings.TrimPrefix(field, skuFieldPrefix), true
	}
	return "", false
}

var (
	reLabeledName = regexp.MustCompile(`(?i)(?:scheme|deal|program)\s*name\s*[:\-]\s*(.+)$`)
	reCapRun      = regexp.MustCompile(`\b[A-Z][A-Za-z0-9&'-]*(?:\s+(?:[A-Z][A-Za-z0-9&'-]*|of|for|the|and|&|\d+))*\b`)
	reRegion      = regexp.MustCompile(`(?i)(?:applicable\s+)?region\s*[:\-]\s*(.+)$`)
	reEligibility = regexp.MustCompile(`(?i)(?:dealer\s*(?:type\s*)?eligibility\s*[:\-]\s*(.+)|eligible\s+dealers?\s*[:\-]\s*(.+))$`)
	reDateToken   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b|(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+\d{4}\b|(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b`)
	reSKUToken    = regexp.MustCompile(`\b[A-Z]{2,}[A-Z0-9]*-[A-Z0-9]{2,}\b|\b[A-Z]{2,3}\d{3,}\b`)
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

// parseDate tries the supported layouts; locale-agnostic in the sense that
// both day-first numeric and spelled-month forms are accepted.
func parseDate(tok string) (time.Time, bool) {
	tok = strings.TrimSpace(tok)
	tok = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)`).ReplaceAllString(tok, "$1")
	tok = strings.ReplaceAll(tok, ",", ", ")
	tok = strings.Join(strings.Fields(tok), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, tok); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MetadataExtractor pulls scheme name, validity window, region, dealer
// eligibility, and product SKU references out of metadata and condition
// zones.
type MetadataExtractor struct{}

func (MetadataExtractor) Name() string { return "metadata" }

func (MetadataExtractor) Accepts(cat constants.ZoneCategory) bool {
	return cat == constants.ZoneMetadata || cat == constants.ZoneConditions
}

func (e MetadataExtractor) Extract(_ context.Context, run Run, zone segment.Zone) []CandidateField {
	var out []CandidateField
	ref := RefOf(zone)
	lines := strings.Split(zone.Text, "\n")

	out = append(out, e.extractName(run, zone, ref, lines)...)
	out = append(out, e.extractWindow(run, zone, ref)...)
	out = append(out, e.extractLabeled(run, ref, lines)...)
	out = append(out, e.extractSKUs(run, zone, ref)...)
	return out
}

// extractName prefers an explicit "Scheme Name:" label; otherwise the
// longest capitalized run near the document start.
func (e MetadataExtractor) extractName(run Run, zone segment.Zone, ref ZoneRef, lines []string) []CandidateField {
	for _, line := range lines {
		if m := reLabeledName.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			if name != "" {
				return []CandidateField{{
					Field:      FieldName,
					Value:      StringValue(name),
					Zone:       ref,
					Confidence: run.Scoring.Score(constants.MethodKeyword, 0, false, 0),
					Method:     constants.MethodKeyword,
				}}
			}
		}
	}
	// fallback heuristic only near the top of the first page
	if zone.Page != 0 || zone.StartLine > 10 {
		return nil
	}
	var best string
	for _, m := range reCapRun.FindAllString(reDateToken.ReplaceAllString(zone.Text, ""), -1) {
		if len(strings.Fields(m)) >= 2 && len(m) > len(best) {
			best = m
		}
	}
	if best == "" {
		return nil
	}
	return []CandidateField{{
		Field:      FieldName,
		Value:      StringValue(strings.TrimSpace(best)),
		Zone:       ref,
		Confidence: run.Scoring.Score(constants.MethodFallback, 0, false, 0),
		Method:     constants.MethodFallback,
	}}
}

// extractWindow finds date tokens and resolves start/end chronologically,
// not by document order. More than two dates in one zone is ambiguity.
func (e MetadataExtractor) extractWindow(run Run, zone segment.Zone, ref ZoneRef) []CandidateField {
	var dates []time.Time
	for _, tok := range reDateToken.FindAllString(zone.Text, -1) {
		if t, ok := parseDate(tok); ok {
			dates = append(dates, t)
		}
	}
	if len(dates) == 0 {
		return nil
	}
	extras := 0
	if len(dates) > 2 {
		extras = len(dates) - 2
		dates = dates[:2]
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	method := constants.MethodKeyword
	conf := run.Scoring.Score(method, extras, false, 0)
	out := []CandidateField{{
		Field: FieldValidFrom, Value: DateValue(dates[0]), Zone: ref, Confidence: conf, Method: method,
	}}
	if len(dates) > 1 {
		out = append(out, CandidateField{
			Field: FieldValidTo, Value: DateValue(dates[len(dates)-1]), Zone: ref, Confidence: conf, Method: method,
		})
	}
	return out
}

func (e MetadataExtractor) extractLabeled(run Run, ref ZoneRef, lines []string) []CandidateField {
	var out []CandidateField
	for _, line := range lines {
		if m := reRegion.FindStringSubmatch(line); m != nil {
			v := strings.TrimSpace(m[1])
			if v != "" {
				out = append(out, CandidateField{
					Field: FieldRegion, Value: StringValue(v), Zone: ref,
					Confidence: run.Scoring.Score(constants.MethodKeyword, 0, false, 0),
					Method:     constants.MethodKeyword,
				})
			}
		}
		if m := reEligibility.FindStringSubmatch(line); m != nil {
			v := strings.TrimSpace(m[1])
			if v == "" {
				v = strings.TrimSpace(m[2])
			}
			if v != "" {
				out = append(out, CandidateField{
					Field: FieldEligibility, Value: StringValue(v), Zone: ref,
					Confidence: run.Scoring.Score(constants.MethodKeyword, 0, false, 0),
					Method:     constants.MethodKeyword,
				})
			}
		}
	}
	return out
}

// extractSKUs emits one candidate per distinct product token. Tokens that
// do not resolve against the catalog are still emitted; the reconciler
// flags them as unresolved rather than discarding them.
func (e MetadataExtractor) extractSKUs(run Run, zone segment.Zone, ref ZoneRef) []CandidateField {
	seen := map[string]struct{}{}
	var out []CandidateField
	for _, tok := range reSKUToken.FindAllString(zone.Text, -1) {
		sku := strings.ToUpper(tok)
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		method := constants.MethodFallback
		if _, ok := run.Catalog.Resolve(sku); ok {
			method = constants.MethodKeyword
		}
		out = append(out, CandidateField{
			Field:      SKUField(sku),
			Value:      EnumValue(sku),
			Zone:       ref,
			Confidence: run.Scoring.Score(method, 0, false, 0),
			Method:     method,
		})
	}
	return out
}
