package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
	"github.com/anubhav-nekko/cw-dns/internal/reconcile"
)

// AuditEntry records one reviewer action on a ticket.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Action string    `json:"action"`
	Field  string    `json:"field,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Ticket wraps a SchemeDraft with approval status and an audit trail.
// Version implements optimistic concurrency: every mutation requires the
// caller's last-seen version and bumps it. CommitAttempts is the monotonic
// commit-attempt marker used to detect concurrent commits.
type Ticket struct {
	ID             uuid.UUID               `json:"id"`
	SourceID       string                  `json:"source_id"`
	Status         constants.TicketStatus  `json:"status"`
	Version        int                     `json:"version"`
	Draft          reconcile.SchemeDraft   `json:"draft"`
	Candidates     []fields.CandidateField `json:"candidates"`
	Audit          []AuditEntry            `json:"audit"`
	CommitAttempts int                     `json:"commit_attempts"`
	SchemeID       *uuid.UUID              `json:"scheme_id,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`

	run        fields.Run
	committing bool
}

// snapshot returns a copy safe to hand outside the store lock.
func (t *Ticket) snapshot() *Ticket {
	cp := *t
	cp.Candidates = append([]fields.CandidateField(nil), t.Candidates...)
	cp.Audit = append([]AuditEntry(nil), t.Audit...)
	return &cp
}
