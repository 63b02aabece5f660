package constants

// TicketStatus is the canonical status for review tickets.
type TicketStatus string

// Stable values (store these exact strings in DB / API payloads).
const (
	TicketPending    TicketStatus = "PENDING"    // awaiting reviewer decision
	TicketApproved   TicketStatus = "APPROVED"   // cleared for commit
	TicketRejected   TicketStatus = "REJECTED"   // discarded; ticket retained for audit
	TicketSuperseded TicketStatus = "SUPERSEDED" // committed; terminal
)

// Terminal reports whether no further transition is allowed.
func (s TicketStatus) Terminal() bool {
	return s == TicketRejected || s == TicketSuperseded
}

// ZoneCategory labels a contiguous span of document text.
type ZoneCategory string

const (
	ZoneMetadata   ZoneCategory = "metadata"
	ZoneConditions ZoneCategory = "conditions"
	ZoneTierTable  ZoneCategory = "tier_table"
	ZoneFreeItems  ZoneCategory = "free_items"
	ZoneOther      ZoneCategory = "other"
)

// Extraction method tags, ordered strongest to weakest. Human overrides
// outrank everything during reconciliation.
const (
	MethodHumanOverride = "human-override"
	MethodTablePattern  = "table-pattern"
	MethodKeyword       = "keyword-trigger"
	MethodFallback      = "fallback"
)

// MethodRank returns a comparable strength for tie-breaking candidates
// with equal confidence. Higher wins.
func MethodRank(method string) int {
	switch method {
	case MethodHumanOverride:
		return 3
	case MethodTablePattern:
		return 2
	case MethodKeyword:
		return 1
	default:
		return 0
	}
}
