// Package segment splits normalized document text into semantic zones.
//
// Classification is line-by-line against ordered heuristic matchers; a
// maximal run of consecutive same-category lines forms one Zone. Table/tier
// patterns take precedence over free-item and condition keywords because
// tier tables are the most structurally rigid content. Unmatched runs become
// "other" zones, never dropped, since review may need the original context.
package segment

import (
	"regexp"
	"strings"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/document"
)

// Zone is a labeled contiguous span of page text.
type Zone struct {
	Category  constants.ZoneCategory
	Page      int // 0-based page index into the RawDocument
	StartLine int // 0-based line index within the page
	EndLine   int // inclusive
	Text      string
}

var (
	reNumericRange = regexp.MustCompile(`\b\d[\d,]*\s*(?:-|–|to)\s*\d[\d,]*\b`)
	reOpenRange    = regexp.MustCompile(`(?i)\b\d[\d,]*\s*\+|\b(?:above|over)\s+\d[\d,]*\b|\b\d[\d,]*\s+(?:and above|or more)\b`)
	reTierLabel    = regexp.MustCompile(`(?i)^\s*(?:tier|slab)\s*\d+\b`)
	reColumns      = regexp.MustCompile(`\S(?:\t+| {2,}|\s*\|\s*)\S`)
	reDigit        = regexp.MustCompile(`\d`)

	reFreeItem   = regexp.MustCompile(`(?i)\b(?:free|bundled|complimentary|bundle offer)\b`)
	reConditions = regexp.MustCompile(`(?i)\b(?:eligib\w*|conditions?|terms|applicable|dealer type|minimum|must|exclusions?|excluded)\b`)
	reMetadata   = regexp.MustCompile(`(?i)\b(?:scheme|program|deal|period|valid(?:ity)?|region|w\.?e\.?f\.?)\b`)
	reDateish    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b|(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b|(?i)\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{4}\b`)
)

// classify assigns one line to the first matching category.
func classify(line string) constants.ZoneCategory {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "" // blank lines extend the current run
	}
	if isTierLine(trimmed) {
		return constants.ZoneTierTable
	}
	if reFreeItem.MatchString(trimmed) {
		return constants.ZoneFreeItems
	}
	if reConditions.MatchString(trimmed) {
		return constants.ZoneConditions
	}
	if reMetadata.MatchString(trimmed) || reDateish.MatchString(trimmed) {
		return constants.ZoneMetadata
	}
	return constants.ZoneOther
}

func isTierLine(line string) bool {
	if !reDigit.MatchString(line) {
		return false
	}
	if reTierLabel.MatchString(line) {
		return true
	}
	// calendar dates also look like numeric ranges ("2023-08-01 to
	// 2023-08-31"); mask them before testing range patterns
	line = reDateish.ReplaceAllString(line, "")
	if reNumericRange.MatchString(line) || reOpenRange.MatchString(line) {
		return true
	}
	// table-like rows: multi-column spacing with numeric content
	return reColumns.MatchString(line) && strings.Count(line, "  ")+strings.Count(line, "\t")+strings.Count(line, "|") >= 2
}

// Segment scans the document and returns zones that are non-overlapping and
// collectively cover it. Always returns at least one zone.
func Segment(doc *document.RawDocument) []Zone {
	var zones []Zone
	for page, text := range doc.Pages {
		lines := strings.Split(text, "\n")
		var (
			cur      constants.ZoneCategory
			curStart int
			buf      []string
		)
		flush := func(end int) {
			if len(buf) == 0 {
				return
			}
			zones = append(zones, Zone{
				Category:  cur,
				Page:      page,
				StartLine: curStart,
				EndLine:   end,
				Text:      strings.Join(buf, "\n"),
			})
			buf = nil
		}
		for i, line := range lines {
			cat := classify(line)
			if cat == "" {
				// blank: stays with the current run, or starts an "other" run
				if len(buf) == 0 {
					cur = constants.ZoneOther
					curStart = i
				}
				buf = append(buf, line)
				continue
			}
			if len(buf) == 0 {
				cur = cat
				curStart = i
			} else if cat != cur {
				flush(i - 1)
				cur = cat
				curStart = i
			}
			buf = append(buf, line)
		}
		flush(len(lines) - 1)
	}
	if len(zones) == 0 {
		zones = append(zones, Zone{Category: constants.ZoneOther, Page: 0, StartLine: 0, EndLine: 0, Text: ""})
	}
	return zones
}
