package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/document"
)

const samplePage = `Monsoon Dhamaka Scheme
Scheme Name: Monsoon Dhamaka
Validity: 2023-08-01 to 2023-08-31
Applicable Region: North Zone

Eligible dealers: Gold and Silver tier partners only.

Tier 1: 0-50 units -> $10 per unit
Tier 2: 51-100 units -> $15 per unit
Tier 3: 101+ units -> $20 per unit

Free Bluetooth headset on any Tier 2 sale.

Contact your area manager for details`

func doc(pages ...string) *document.RawDocument {
	return &document.RawDocument{SourceID: "sample.pdf", Pages: pages}
}

func TestSegmentCategorizesSample(t *testing.T) {
	zones := Segment(doc(samplePage))
	require.NotEmpty(t, zones)

	cats := map[constants.ZoneCategory]int{}
	for _, z := range zones {
		cats[z.Category]++
	}
	assert.Positive(t, cats[constants.ZoneMetadata], "scheme header should land in a metadata zone")
	assert.Positive(t, cats[constants.ZoneTierTable], "tier rows should land in a tier_table zone")
	assert.Positive(t, cats[constants.ZoneFreeItems], "free item clause should land in a free_items zone")
	assert.Positive(t, cats[constants.ZoneConditions], "eligibility line should land in a conditions zone")
}

func TestSegmentCoversDocumentWithoutOverlap(t *testing.T) {
	zones := Segment(doc(samplePage))

	lineCount := len(strings.Split(samplePage, "\n"))
	covered := make([]bool, lineCount)
	for _, z := range zones {
		require.Equal(t, 0, z.Page)
		require.LessOrEqual(t, z.StartLine, z.EndLine)
		for i := z.StartLine; i <= z.EndLine; i++ {
			require.False(t, covered[i], "line %d assigned to two zones", i)
			covered[i] = true
		}
	}
	for i, ok := range covered {
		assert.True(t, ok, "line %d not covered by any zone", i)
	}
}

func TestSegmentDateRangeIsNotATierRow(t *testing.T) {
	zones := Segment(doc("Validity: 2023-08-01 to 2023-08-31"))
	require.Len(t, zones, 1)
	assert.Equal(t, constants.ZoneMetadata, zones[0].Category)
}

func TestSegmentTierRowVariants(t *testing.T) {
	for _, line := range []string{
		"Tier 1: 0-50 units -> $10",
		"Slab 2   51 to 100   Rs. 15",
		"101+ units payout 20",
		"above 200 pcs $25",
	} {
		zones := Segment(doc(line))
		require.Len(t, zones, 1, line)
		assert.Equal(t, constants.ZoneTierTable, zones[0].Category, line)
	}
}

func TestSegmentUnmatchedTextBecomesOther(t *testing.T) {
	zones := Segment(doc("just some closing remarks here"))
	require.Len(t, zones, 1)
	assert.Equal(t, constants.ZoneOther, zones[0].Category)
}

func TestSegmentEmptyDocumentYieldsOneZone(t *testing.T) {
	zones := Segment(doc())
	require.Len(t, zones, 1)
	assert.Equal(t, constants.ZoneOther, zones[0].Category)
}

func TestSegmentBlankLinesExtendCurrentRun(t *testing.T) {
	page := "Tier 1: 0-50 units $10\n\nTier 2: 51-100 units $15"
	zones := Segment(doc(page))
	require.Len(t, zones, 1)
	assert.Equal(t, constants.ZoneTierTable, zones[0].Category)
	assert.Equal(t, 0, zones[0].StartLine)
	assert.Equal(t, 2, zones[0].EndLine)
}

func TestSegmentTrailingBlanksStayInsideLineSpan(t *testing.T) {
	page := "Tier 1: 0-50 units $10\nTier 2: 51-100 units $15\n\n\nFree headset on Tier 2 sale."
	zones := Segment(doc(page))
	require.Len(t, zones, 2)

	// blanks before the category switch belong to the tier run, and every
	// zone's line span matches its text exactly
	assert.Equal(t, constants.ZoneTierTable, zones[0].Category)
	assert.Equal(t, 0, zones[0].StartLine)
	assert.Equal(t, 3, zones[0].EndLine)
	assert.Equal(t, constants.ZoneFreeItems, zones[1].Category)
	assert.Equal(t, 4, zones[1].StartLine)
	for _, z := range zones {
		assert.Len(t, strings.Split(z.Text, "\n"), z.EndLine-z.StartLine+1)
	}
}

func TestSegmentMultiPageKeepsPageIndex(t *testing.T) {
	zones := Segment(doc("Scheme period details", "Tier 1: 0-50 units $10"))
	require.Len(t, zones, 2)
	assert.Equal(t, 0, zones[0].Page)
	assert.Equal(t, 1, zones[1].Page)
}
