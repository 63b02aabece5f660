package review

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
	"github.com/anubhav-nekko/cw-dns/internal/reconcile"
)

func stageTicket(t *testing.T, s *Store, cands []fields.CandidateField) *Ticket {
	t.Helper()
	run := fields.NewRun(nil, 0.60)
	draft := reconcile.Reconcile(run, "sample.pdf", cands)
	return s.Stage(run, draft, cands)
}

func cleanCands() []fields.CandidateField {
	from := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)
	return []fields.CandidateField{
		{Field: fields.FieldName, Value: fields.StringValue("Monsoon Dhamaka"), Confidence: 0.75, Method: constants.MethodKeyword},
		{Field: fields.FieldValidFrom, Value: fields.DateValue(from), Confidence: 0.75, Method: constants.MethodKeyword},
		{Field: fields.FieldValidTo, Value: fields.DateValue(to), Confidence: 0.75, Method: constants.MethodKeyword},
	}
}

func TestStageAndGet(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())

	assert.Equal(t, constants.TicketPending, ticket.Status)
	assert.Equal(t, 1, ticket.Version)
	assert.Equal(t, "sample.pdf", ticket.SourceID)
	require.Len(t, ticket.Audit, 1)
	assert.Equal(t, "staged", ticket.Audit[0].Action)

	got, err := s.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
}

func TestGetUnknownTicket(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Get(uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	s := NewStore(nil)
	a := stageTicket(t, s, cleanCands())
	b := stageTicket(t, s, cleanCands())

	_, err := s.Reject(b.ID, b.Version, "alice")
	require.NoError(t, err)

	pending := s.List(constants.TicketPending)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)
	assert.Len(t, s.List(""), 2)
}

func TestEditAppendsOverrideAndReReconciles(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())

	got, err := s.Edit(ticket.ID, ticket.Version, fields.FieldName,
		fields.StringValue("Corrected Name"), "alice")
	require.NoError(t, err)

	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "Corrected Name", got.Draft.Name)
	assert.InDelta(t, 1.0, got.Draft.Confidence[fields.FieldName], 0.001)

	last := got.Candidates[len(got.Candidates)-1]
	assert.Equal(t, constants.MethodHumanOverride, last.Method)
	assert.Equal(t, "edit", got.Audit[len(got.Audit)-1].Action)
	assert.Equal(t, "alice", got.Audit[len(got.Audit)-1].Actor)
}

func TestEditResolvesFlagsViaReReconcile(t *testing.T) {
	s := NewStore(nil)
	// no valid_to candidate: draft starts flagged
	cands := cleanCands()[:2]
	ticket := stageTicket(t, s, cands)
	require.True(t, ticket.Draft.NeedsReview)

	_, err := s.Approve(ticket.ID, ticket.Version, "alice")
	assert.ErrorIs(t, err, common.ErrValidation)

	got, err := s.Edit(ticket.ID, ticket.Version, fields.FieldValidTo,
		fields.DateValue(time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC)), "alice")
	require.NoError(t, err)
	assert.False(t, got.Draft.NeedsReview)

	approved, err := s.Approve(got.ID, got.Version, "bob")
	require.NoError(t, err)
	assert.Equal(t, constants.TicketApproved, approved.Status)
}

func TestEditClearsUnresolvedProduct(t *testing.T) {
	s := NewStore(nil)
	// misread token against an empty catalog: flagged unresolved and
	// below the confidence threshold
	cands := append(cleanCands(), fields.CandidateField{
		Field: fields.SKUField("XX-123"), Value: fields.EnumValue("XX-123"),
		Confidence: 0.50, Method: constants.MethodFallback,
	})
	ticket := stageTicket(t, s, cands)
	require.True(t, ticket.Draft.NeedsReview)

	_, err := s.Approve(ticket.ID, ticket.Version, "alice")
	assert.ErrorIs(t, err, common.ErrValidation)

	got, err := s.Edit(ticket.ID, ticket.Version, fields.SKUField("XX-123"),
		fields.EnumValue(""), "alice")
	require.NoError(t, err)
	assert.Empty(t, got.Draft.Products)
	assert.False(t, got.Draft.NeedsReview)

	approved, err := s.Approve(got.ID, got.Version, "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.TicketApproved, approved.Status)
}

func TestStaleVersionRejected(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())

	_, err := s.Edit(ticket.ID, ticket.Version, fields.FieldName, fields.StringValue("A"), "alice")
	require.NoError(t, err)

	// second reviewer still holds version 1
	_, err = s.Edit(ticket.ID, ticket.Version, fields.FieldName, fields.StringValue("B"), "bob")
	assert.ErrorIs(t, err, common.ErrStaleTicket)
	_, err = s.Approve(ticket.ID, ticket.Version, "bob")
	assert.ErrorIs(t, err, common.ErrStaleTicket)
}

func TestTerminalTicketsRejectMutation(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())

	rejected, err := s.Reject(ticket.ID, ticket.Version, "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.TicketRejected, rejected.Status)

	_, err = s.Edit(ticket.ID, rejected.Version, fields.FieldName, fields.StringValue("X"), "bob")
	assert.ErrorIs(t, err, common.ErrTerminalState)
	_, err = s.Approve(ticket.ID, rejected.Version, "bob")
	assert.ErrorIs(t, err, common.ErrTerminalState)
}

func TestApproveBlockedWhileFlagsRemain(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, nil) // everything missing

	_, err := s.Approve(ticket.ID, ticket.Version, "alice")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCommitLifecycle(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())
	approved, err := s.Approve(ticket.ID, ticket.Version, "alice")
	require.NoError(t, err)

	began, err := s.BeginCommit(approved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, began.CommitAttempts)

	// concurrent second attempt while the first is in flight
	_, err = s.BeginCommit(approved.ID)
	assert.ErrorIs(t, err, common.ErrCommitConflict)

	schemeID := uuid.New()
	require.NoError(t, s.FinishCommit(approved.ID, schemeID, true))

	final, err := s.Get(approved.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TicketSuperseded, final.Status)
	require.NotNil(t, final.SchemeID)
	assert.Equal(t, schemeID, *final.SchemeID)

	// commit after supersede conflicts rather than double-writing
	_, err = s.BeginCommit(approved.ID)
	assert.ErrorIs(t, err, common.ErrCommitConflict)
}

func TestFailedCommitLeavesTicketApproved(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())
	approved, err := s.Approve(ticket.ID, ticket.Version, "alice")
	require.NoError(t, err)

	_, err = s.BeginCommit(approved.ID)
	require.NoError(t, err)
	require.NoError(t, s.FinishCommit(approved.ID, uuid.Nil, false))

	got, err := s.Get(approved.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TicketApproved, got.Status)
	assert.Nil(t, got.SchemeID)
	assert.Equal(t, 1, got.CommitAttempts)

	// retry succeeds
	_, err = s.BeginCommit(approved.ID)
	require.NoError(t, err)
	require.NoError(t, s.FinishCommit(approved.ID, uuid.New(), true))
	final, _ := s.Get(approved.ID)
	assert.Equal(t, constants.TicketSuperseded, final.Status)
	assert.Equal(t, 2, final.CommitAttempts)
}

func TestCommitRequiresApproval(t *testing.T) {
	s := NewStore(nil)
	ticket := stageTicket(t, s, cleanCands())

	_, err := s.BeginCommit(ticket.ID)
	assert.ErrorIs(t, err, common.ErrValidation)
}
