package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adrizkya/parkirin/internal/audit"
	"github.com/adrizkya/parkirin/internal/dupe"
	"github.com/adrizkya/parkirin/internal/models"
	"github.com/adrizkya/parkirin/internal/plate"
	"github.com/adrizkya/parkirin/internal/store"
)

const testLot = "default"

type recordSink struct {
	entries []audit.Entry
}

func (r *recordSink) Append(ctx context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordSink) byType(op string) []audit.Entry {
	var out []audit.Entry
	for _, e := range r.entries {
		if e.OperationType == op {
			out = append(out, e)
		}
	}
	return out
}

type failSink struct{}

func (failSink) Append(ctx context.Context, e audit.Entry) error {
	return errors.New("audit table unavailable")
}

// fakeClock hands out strictly increasing timestamps so entry and exit
// times order deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestEngine(sink audit.Sink) (*Engine, *store.MemoryStore) {
	st := store.NewMemoryStore()
	resolver := dupe.NewResolver(st, nil, zap.NewNop())
	e := New(st, resolver, sink, zap.NewNop())
	clk := &fakeClock{t: time.Date(2025, 1, 15, 8, 0, 0, 0, time.Local)}
	e.now = clk.Now
	return e, st
}

func open(t *testing.T, e *Engine, plateNumber string) *models.Ticket {
	t.Helper()
	res, err := e.Open(context.Background(), OpenRequest{
		LotID:       testLot,
		PlateNumber: plateNumber,
		DeviceID:    "device_test_1",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	return res.Ticket
}

func activeCount(t *testing.T, st *store.MemoryStore, plateNumber string) int {
	t.Helper()
	tickets, err := st.List(context.Background(), store.ListQuery{LotID: testLot, Status: models.StatusActive})
	require.NoError(t, err)
	n := 0
	for _, tk := range tickets {
		if plate.Equal(tk.PlateNumber, plateNumber) {
			n++
		}
	}
	return n
}

func TestOpenCreatesActiveTicket(t *testing.T) {
	sink := &recordSink{}
	e, _ := newTestEngine(sink)

	ticket := open(t, e, "  ABC-123 ")
	assert.Equal(t, "ABC-123", ticket.PlateNumber, "plate trimmed, casing preserved")
	assert.Equal(t, models.StatusActive, ticket.Status)
	assert.Nil(t, ticket.ExitTime)
	assert.False(t, ticket.EntryTime.IsZero())
	assert.Empty(t, sink.entries, "plain open is not audited")
}

func TestOpenRejectsInvalidPlate(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})

	for _, raw := range []string{"", "   ", "ABC#123", "012345678901234567890"} {
		_, err := e.Open(context.Background(), OpenRequest{LotID: testLot, PlateNumber: raw, DeviceID: "d"})
		var verr *plate.ValidationError
		assert.ErrorAs(t, err, &verr, "raw=%q", raw)
	}
}

func TestOpenConflictOnCaseVariant(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)

	first := open(t, e, "ABC-123")

	_, err := e.Open(context.Background(), OpenRequest{LotID: testLot, PlateNumber: "abc-123", DeviceID: "d2"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Existing)
	assert.Equal(t, first.ID, conflict.Existing.ID)

	assert.Empty(t, sink.entries, "refused open writes nothing")
	assert.Equal(t, 1, activeCount(t, st, "ABC-123"))
}

func TestOpenSameLotOnlyConflicts(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})

	open(t, e, "ABC-123")
	res, err := e.Open(context.Background(), OpenRequest{LotID: "lot-b", PlateNumber: "ABC-123", DeviceID: "d"})
	require.NoError(t, err, "uniqueness is scoped per parking lot")
	assert.Equal(t, "lot-b", res.Ticket.ParkingLotID)
}

func TestForceOpenDemotesConflict(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)

	first := open(t, e, "ABC-123")

	res, err := e.ForceOpen(context.Background(), OpenRequest{
		LotID:       testLot,
		PlateNumber: "abc-123",
		DeviceID:    "device_force",
	}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, res.Ticket.Status)
	assert.Equal(t, "abc-123", res.Ticket.PlateNumber)

	demoted, err := st.ByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbnormal, demoted.Status)

	marks := sink.byType(models.OpMarkAbnormalDuplicate)
	require.Len(t, marks, 1)
	assert.Equal(t, first.ID, marks[0].TicketID)
	assert.Equal(t, "device_force", marks[0].DeviceID)
	assert.Equal(t, "active", marks[0].OldValue["status"])
	assert.Equal(t, "abnormal", marks[0].NewValue["status"])
	assert.Len(t, sink.entries, 1, "the new ticket's creation is not separately audited")

	assert.Equal(t, 1, activeCount(t, st, "ABC-123"))
}

func TestForceOpenMissingConflict(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})

	_, err := e.ForceOpen(context.Background(), OpenRequest{
		LotID: testLot, PlateNumber: "ABC-123", DeviceID: "d",
	}, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCloseIsNotRepeatable(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)

	ticket := open(t, e, "ABC-123")

	res, err := e.Close(context.Background(), ticket.ID, "device_exit")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExited, res.Ticket.Status)
	require.NotNil(t, res.Ticket.ExitTime)
	firstExit := *res.Ticket.ExitTime

	_, err = e.Close(context.Background(), ticket.ID, "device_exit")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	stored, err := st.ByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExitTime)
	assert.True(t, stored.ExitTime.Equal(firstExit), "exit_time is not double-written")
	assert.Len(t, sink.byType(models.OpExit), 1, "no second exit audit entry")
}

func TestCloseNotFound(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})
	_, err := e.Close(context.Background(), 42, "d")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUndoCloseRoundTrip(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)

	ticket := open(t, e, "ABC-123")
	_, err := e.Close(context.Background(), ticket.ID, "d")
	require.NoError(t, err)

	res, err := e.UndoClose(context.Background(), ticket.ID, "d")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, res.Ticket.Status)
	assert.Nil(t, res.Ticket.ExitTime)

	stored, err := st.ByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Nil(t, stored.ExitTime)

	undos := sink.byType(models.OpUndoExit)
	require.Len(t, undos, 1)
	assert.Equal(t, "exited", undos[0].OldValue["status"])
	assert.Equal(t, "active", undos[0].NewValue["status"])
	assert.Nil(t, undos[0].NewValue["exit_time"])
}

func TestUndoCloseSelfInvalidates(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)

	ticketA := open(t, e, "ABC-123")
	_, err := e.Close(context.Background(), ticketA.ID, "d")
	require.NoError(t, err)

	// plate re-enters: no conflict, A is exited
	ticketB := open(t, e, "ABC-123")
	require.NotEqual(t, ticketA.ID, ticketB.ID)

	_, err = e.UndoClose(context.Background(), ticketA.ID, "d")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "newer entry")

	stored, err := st.ByID(context.Background(), ticketA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExited, stored.Status, "failed undo writes nothing")
	assert.Empty(t, sink.byType(models.OpUndoExit))
}

func TestUndoCloseRequiresExited(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})

	ticket := open(t, e, "ABC-123")
	_, err := e.UndoClose(context.Background(), ticket.ID, "d")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAmendPlateIsOneShot(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)

	ticket := open(t, e, "ABC-123")

	res, err := e.AmendPlate(context.Background(), ticket.ID, "DEF-456", "device_amend")
	require.NoError(t, err)
	assert.Equal(t, "DEF-456", res.Ticket.PlateNumber)
	assert.True(t, res.Ticket.PlateModified)
	require.NotNil(t, res.Ticket.OriginalPlateNumber)
	assert.Equal(t, "ABC-123", *res.Ticket.OriginalPlateNumber)

	mods := sink.byType(models.OpModifyPlate)
	require.Len(t, mods, 1)
	assert.Equal(t, "ABC-123", mods[0].OldValue["plate_number"])
	assert.Equal(t, "DEF-456", mods[0].NewValue["plate_number"])

	// second amendment always fails, regardless of the proposed value
	for _, next := range []string{"GHI-789", "ABC-123", "DEF-456"} {
		_, err = e.AmendPlate(context.Background(), ticket.ID, next, "device_amend")
		var already *AlreadyModifiedError
		require.ErrorAs(t, err, &already, "next=%q", next)
	}

	stored, err := st.ByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEF-456", stored.PlateNumber)
	assert.Len(t, sink.byType(models.OpModifyPlate), 1)
}

func TestAmendPlateRejectsInvalid(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})
	ticket := open(t, e, "ABC-123")

	_, err := e.AmendPlate(context.Background(), ticket.ID, "***", "d")
	var verr *plate.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAmendPlateConflictsWithOtherActive(t *testing.T) {
	e, _ := newTestEngine(&recordSink{})

	open(t, e, "ABC-123")
	other := open(t, e, "DEF-456")

	_, err := e.AmendPlate(context.Background(), other.ID, "abc-123", "d")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAuditFailureIsNonFatal(t *testing.T) {
	e, st := newTestEngine(failSink{})

	ticket := open(t, e, "ABC-123")
	res, err := e.Close(context.Background(), ticket.ID, "d")
	require.NoError(t, err, "audit failure never fails the mutation")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "audit log write failed")

	stored, err := st.ByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExited, stored.Status)
}

// The central invariant: at most one active ticket per plate per lot at
// any observable point of a serialized operation sequence.
func TestActivePlateInvariantUnderSequences(t *testing.T) {
	sink := &recordSink{}
	e, st := newTestEngine(sink)
	ctx := context.Background()

	check := func(step string) {
		require.LessOrEqual(t, activeCount(t, st, "ABC-123"), 1, "after %s", step)
	}

	a := open(t, e, "ABC-123")
	check("open A")

	_, err := e.Open(ctx, OpenRequest{LotID: testLot, PlateNumber: "ABC-123", DeviceID: "d"})
	require.Error(t, err)
	check("refused duplicate open")

	resB, err := e.ForceOpen(ctx, OpenRequest{LotID: testLot, PlateNumber: "ABC-123", DeviceID: "d"}, a.ID)
	require.NoError(t, err)
	check("force open B")

	_, err = e.Close(ctx, resB.Ticket.ID, "d")
	require.NoError(t, err)
	check("close B")

	_, err = e.UndoClose(ctx, resB.Ticket.ID, "d")
	require.NoError(t, err)
	check("undo close B")

	_, err = e.Close(ctx, resB.Ticket.ID, "d")
	require.NoError(t, err)
	c := open(t, e, "ABC-123")
	check("reopen after close")

	_, err = e.UndoClose(ctx, resB.Ticket.ID, "d")
	require.Error(t, err, "undo after re-entry must refuse")
	check("refused undo")

	_, err = e.Close(ctx, c.ID, "d")
	require.NoError(t, err)
	check("close C")
}
