// Package review holds candidate scheme drafts pending human approval.
//
// The ticket state machine is pending -> {approved, rejected}; approved
// tickets transition to superseded once committed. Rejected and superseded
// are terminal. Mutations are serialized per ticket through optimistic
// version checks so multiple reviewers can work concurrently.
package review

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
	"github.com/anubhav-nekko/cw-dns/internal/reconcile"
)

// Store is the in-memory staging area for review tickets.
type Store struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]*Ticket
	logger  *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{tickets: map[uuid.UUID]*Ticket{}, logger: logger}
}

// Stage wraps a reconciled draft in a new pending ticket.
func (s *Store) Stage(run fields.Run, draft reconcile.SchemeDraft, candidates []fields.CandidateField) *Ticket {
	now := time.Now().UTC()
	t := &Ticket{
		ID:         uuid.New(),
		SourceID:   draft.SourceID,
		Status:     constants.TicketPending,
		Version:    1,
		Draft:      draft,
		Candidates: append([]fields.CandidateField(nil), candidates...),
		Audit:      []AuditEntry{{At: now, Action: "staged"}},
		CreatedAt:  now,
		UpdatedAt:  now,
		run:        run,
	}
	s.mu.Lock()
	s.tickets[t.ID] = t
	s.mu.Unlock()

	s.logger.Info("ticket staged",
		"ticket_id", t.ID,
		"source_id", t.SourceID,
		"needs_review", draft.NeedsReview,
		"flags", len(draft.Flags),
	)
	return t.snapshot()
}

// Get returns a snapshot of one ticket.
func (s *Store) Get(id uuid.UUID) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, common.ErrNotFound)
	}
	return t.snapshot(), nil
}

// List returns snapshots filtered by status; an empty status returns all.
func (s *Store) List(status constants.TicketStatus) []*Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Ticket
	for _, t := range s.tickets {
		if status == "" || t.Status == status {
			out = append(out, t.snapshot())
		}
	}
	return out
}

// locked lookup + optimistic version check for mutations.
func (s *Store) checkMutable(id uuid.UUID, version int) (*Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, common.ErrNotFound)
	}
	if t.Status.Terminal() {
		return nil, fmt.Errorf("ticket %s is %s: %w", id, t.Status, common.ErrTerminalState)
	}
	if t.Version != version {
		return nil, fmt.Errorf("ticket %s at version %d, caller saw %d: %w",
			id, t.Version, version, common.ErrStaleTicket)
	}
	return t, nil
}

// Edit applies a human correction: it appends a human-override candidate
// (corrections never mutate prior candidates) and re-reconciles, replacing
// the draft with a new immutable version. Status stays pending.
func (s *Store) Edit(id uuid.UUID, version int, field string, value fields.Value, actor string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.checkMutable(id, version)
	if err != nil {
		return nil, err
	}
	if t.Status != constants.TicketPending {
		return nil, fmt.Errorf("ticket %s is %s, only pending tickets accept edits: %w",
			id, t.Status, common.ErrValidation)
	}

	override := fields.CandidateField{
		Field:      field,
		Value:      value,
		Confidence: 1.0,
		Method:     constants.MethodHumanOverride,
	}
	t.Candidates = append(t.Candidates, override)
	t.Draft = reconcile.Reconcile(t.run, t.SourceID, t.Candidates)
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	t.Audit = append(t.Audit, AuditEntry{
		At: t.UpdatedAt, Actor: actor, Action: "edit", Field: field, Detail: value.Text(),
	})

	s.logger.Info("ticket edited",
		"ticket_id", id, "field", field, "actor", actor,
		"needs_review", t.Draft.NeedsReview, "version", t.Version,
	)
	return t.snapshot(), nil
}

// Approve transitions pending -> approved. Approval is blocked while any
// flag remains: a draft with needs_review still true fails with
// ErrValidation regardless of edit history.
func (s *Store) Approve(id uuid.UUID, version int, actor string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.checkMutable(id, version)
	if err != nil {
		return nil, err
	}
	if t.Status != constants.TicketPending {
		return nil, fmt.Errorf("ticket %s is %s: %w", id, t.Status, common.ErrValidation)
	}
	if t.Draft.NeedsReview {
		return nil, fmt.Errorf("ticket %s still has %d unresolved flags: %w",
			id, len(t.Draft.Flags), common.ErrValidation)
	}
	t.Status = constants.TicketApproved
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	t.Audit = append(t.Audit, AuditEntry{At: t.UpdatedAt, Actor: actor, Action: "approve"})

	s.logger.Info("ticket approved", "ticket_id", id, "actor", actor)
	return t.snapshot(), nil
}

// Reject transitions pending -> rejected. The ticket is retained for audit.
func (s *Store) Reject(id uuid.UUID, version int, actor string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.checkMutable(id, version)
	if err != nil {
		return nil, err
	}
	if t.Status != constants.TicketPending {
		return nil, fmt.Errorf("ticket %s is %s: %w", id, t.Status, common.ErrValidation)
	}
	t.Status = constants.TicketRejected
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	t.Audit = append(t.Audit, AuditEntry{At: t.UpdatedAt, Actor: actor, Action: "reject"})

	s.logger.Info("ticket rejected", "ticket_id", id, "actor", actor)
	return t.snapshot(), nil
}

// BeginCommit marks a commit attempt in flight. A ticket that is already
// superseded, or already mid-commit, fails with ErrCommitConflict so the
// caller can re-fetch ticket state.
func (s *Store) BeginCommit(id uuid.UUID) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, common.ErrNotFound)
	}
	if t.Status == constants.TicketSuperseded || t.committing {
		return nil, fmt.Errorf("ticket %s: %w", id, common.ErrCommitConflict)
	}
	if t.Status != constants.TicketApproved {
		return nil, fmt.Errorf("ticket %s is %s, commit requires approved: %w",
			id, t.Status, common.ErrValidation)
	}
	t.committing = true
	t.CommitAttempts++
	return t.snapshot(), nil
}

// FinishCommit resolves an in-flight commit attempt. On success the ticket
// becomes superseded (the terminal state actually recorded); on failure it
// stays approved so retry is safe.
func (s *Store) FinishCommit(id uuid.UUID, schemeID uuid.UUID, committed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %s: %w", id, common.ErrNotFound)
	}
	t.committing = false
	t.UpdatedAt = time.Now().UTC()
	if !committed {
		t.Audit = append(t.Audit, AuditEntry{At: t.UpdatedAt, Action: "commit-failed"})
		s.logger.Warn("commit attempt failed, ticket stays approved", "ticket_id", id)
		return nil
	}
	t.Status = constants.TicketSuperseded
	t.SchemeID = &schemeID
	t.Version++
	t.Audit = append(t.Audit, AuditEntry{
		At: t.UpdatedAt, Action: "committed", Detail: schemeID.String(),
	})
	s.logger.Info("ticket superseded by committed scheme",
		"ticket_id", id, "scheme_id", schemeID)
	return nil
}
