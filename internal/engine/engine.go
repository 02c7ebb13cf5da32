// Package engine orchestrates the parking ticket state machine. It is
// the only writer of ticket state: handlers call in with a candidate
// plate and a device id, the engine normalizes, consults the duplicate
// resolver, mutates the store and mirrors every transition into the
// audit log.
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/adrizkya/parkirin/internal/audit"
	"github.com/adrizkya/parkirin/internal/dupe"
	"github.com/adrizkya/parkirin/internal/models"
	"github.com/adrizkya/parkirin/internal/plate"
	"github.com/adrizkya/parkirin/internal/store"
)

type Engine struct {
	store store.TicketStore
	dupes *dupe.Resolver
	audit audit.Sink
	log   *zap.Logger
	now   func() time.Time
}

func New(s store.TicketStore, r *dupe.Resolver, sink audit.Sink, log *zap.Logger) *Engine {
	return &Engine{store: s, dupes: r, audit: sink, log: log, now: time.Now}
}

type OpenRequest struct {
	LotID        string
	PlateNumber  string
	PhotoURL     *string
	VehicleColor *string
	DeviceID     string
}

// Result is an operation outcome. Warnings carry non-fatal failures,
// currently only audit-log write failures, which never roll back the
// mutation they describe.
type Result struct {
	Ticket   *models.Ticket
	Warnings []string
}

// Open creates a new active ticket for the plate. If an active ticket
// for the same plate already exists the open is refused with a
// ConflictError and nothing is written; the caller must decide to force.
func (e *Engine) Open(ctx context.Context, req OpenRequest) (*Result, error) {
	p, err := plate.Normalize(req.PlateNumber)
	if err != nil {
		return nil, err
	}

	existing, err := e.dupes.FindActiveDuplicate(ctx, req.LotID, p)
	if err != nil {
		return nil, &StoreError{Op: "duplicate check", Err: err}
	}
	if existing != nil {
		return nil, &ConflictError{Reason: "an active ticket already exists for this plate", Existing: existing}
	}

	ticket, err := e.create(ctx, req, p)
	if err != nil {
		return nil, err
	}
	return &Result{Ticket: ticket}, nil
}

// ForceOpen proceeds with a new ticket despite a duplicate conflict. The
// conflicting ticket named by the caller is demoted to abnormal, not
// closed, and the demotion is audited. The new ticket's creation itself
// is implicit in the store and carries no audit entry.
func (e *Engine) ForceOpen(ctx context.Context, req OpenRequest, conflictID uint) (*Result, error) {
	p, err := plate.Normalize(req.PlateNumber)
	if err != nil {
		return nil, err
	}

	conflict, err := e.store.ByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "load conflicting ticket", Err: err}
	}

	result := &Result{}
	demoted, err := e.store.Transition(ctx, conflict.ID, models.StatusActive, map[string]interface{}{
		"status": models.StatusAbnormal,
	})
	if err != nil {
		return nil, &StoreError{Op: "mark abnormal", Err: err}
	}
	if demoted {
		e.appendAudit(ctx, audit.Entry{
			TicketID:      conflict.ID,
			OperationType: models.OpMarkAbnormalDuplicate,
			OldValue:      map[string]interface{}{"status": string(models.StatusActive)},
			NewValue:      map[string]interface{}{"status": string(models.StatusAbnormal)},
			DeviceID:      req.DeviceID,
		}, result)
		e.dupes.Forget(ctx, conflict.ParkingLotID, conflict.PlateNumber)
	}

	// The named conflict is gone, but another open for the same plate
	// may have interleaved. Re-check before writing.
	existing, err := e.dupes.FindActiveDuplicate(ctx, req.LotID, p)
	if err != nil {
		return nil, &StoreError{Op: "duplicate check", Err: err}
	}
	if existing != nil && existing.ID != conflict.ID {
		return nil, &ConflictError{Reason: "another active ticket appeared for this plate", Existing: existing}
	}

	ticket, err := e.create(ctx, req, p)
	if err != nil {
		return nil, err
	}
	result.Ticket = ticket
	return result, nil
}

func (e *Engine) create(ctx context.Context, req OpenRequest, p plate.Plate) (*models.Ticket, error) {
	ticket := &models.Ticket{
		PlateNumber:  p.String(),
		EntryTime:    e.now(),
		PhotoURL:     req.PhotoURL,
		VehicleColor: req.VehicleColor,
		Status:       models.StatusActive,
		DeviceID:     req.DeviceID,
		ParkingLotID: req.LotID,
	}
	if err := e.store.Create(ctx, ticket); err != nil {
		if errors.Is(err, store.ErrDuplicateActive) {
			// Lost the check-then-act race; the uniqueness constraint
			// caught it. Report it like any other duplicate conflict.
			existing, lookupErr := e.dupes.FindActiveDuplicate(ctx, req.LotID, p)
			if lookupErr != nil {
				existing = nil
			}
			return nil, &ConflictError{Reason: "an active ticket already exists for this plate", Existing: existing}
		}
		return nil, &StoreError{Op: "create ticket", Err: err}
	}
	e.dupes.Forget(ctx, req.LotID, ticket.PlateNumber)
	return ticket, nil
}

// Close marks an active ticket exited and stamps the exit time.
func (e *Engine) Close(ctx context.Context, id uint, deviceID string) (*Result, error) {
	ticket, err := e.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status != models.StatusActive {
		return nil, &ConflictError{Reason: "ticket is not active", Existing: ticket}
	}

	exitTime := e.now()
	changed, err := e.store.Transition(ctx, id, models.StatusActive, map[string]interface{}{
		"status":    models.StatusExited,
		"exit_time": exitTime,
	})
	if err != nil {
		return nil, &StoreError{Op: "close ticket", Err: err}
	}
	if !changed {
		stale, _ := e.store.ByID(ctx, id)
		return nil, &ConflictError{Reason: "ticket is not active", Existing: stale}
	}

	ticket.Status = models.StatusExited
	ticket.ExitTime = &exitTime

	result := &Result{Ticket: ticket}
	e.appendAudit(ctx, audit.Entry{
		TicketID:      id,
		OperationType: models.OpExit,
		OldValue:      map[string]interface{}{"status": string(models.StatusActive)},
		NewValue: map[string]interface{}{
			"status":    string(models.StatusExited),
			"exit_time": exitTime.Format(time.RFC3339),
		},
		DeviceID: deviceID,
	}, result)
	e.dupes.Forget(ctx, ticket.ParkingLotID, ticket.PlateNumber)
	return result, nil
}

// UndoClose reopens a just-closed ticket. A ticket can only be undone
// into active state, so the duplicate invariant must be re-checked here:
// if the plate re-entered after this ticket's exit, the undo silently
// creating a second active ticket is exactly what it must refuse.
func (e *Engine) UndoClose(ctx context.Context, id uint, deviceID string) (*Result, error) {
	ticket, err := e.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status != models.StatusExited || ticket.ExitTime == nil {
		return nil, &ConflictError{Reason: "ticket is not exited", Existing: ticket}
	}

	newer, err := e.store.HasNewerEntry(ctx, ticket.ParkingLotID, ticket.PlateNumber, *ticket.ExitTime)
	if err != nil {
		return nil, &StoreError{Op: "undo verification", Err: err}
	}
	if newer {
		return nil, &ConflictError{Reason: "a newer entry exists for this plate", Existing: ticket}
	}

	changed, err := e.store.Transition(ctx, id, models.StatusExited, map[string]interface{}{
		"status":    models.StatusActive,
		"exit_time": nil,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateActive) {
			return nil, &ConflictError{Reason: "an active ticket already exists for this plate", Existing: ticket}
		}
		return nil, &StoreError{Op: "undo close", Err: err}
	}
	if !changed {
		stale, _ := e.store.ByID(ctx, id)
		return nil, &ConflictError{Reason: "ticket is not exited", Existing: stale}
	}

	ticket.Status = models.StatusActive
	ticket.ExitTime = nil

	result := &Result{Ticket: ticket}
	e.appendAudit(ctx, audit.Entry{
		TicketID:      id,
		OperationType: models.OpUndoExit,
		OldValue:      map[string]interface{}{"status": string(models.StatusExited)},
		NewValue: map[string]interface{}{
			"status":    string(models.StatusActive),
			"exit_time": nil,
		},
		DeviceID: deviceID,
	}, result)
	e.dupes.Forget(ctx, ticket.ParkingLotID, ticket.PlateNumber)
	return result, nil
}

// AmendPlate corrects the plate text of a ticket. A plate may be
// amended at most once per ticket, ever; the pre-amendment plate is
// preserved in original_plate_number.
func (e *Engine) AmendPlate(ctx context.Context, id uint, newPlate, deviceID string) (*Result, error) {
	p, err := plate.Normalize(newPlate)
	if err != nil {
		return nil, err
	}

	ticket, err := e.loadTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.PlateModified {
		return nil, &AlreadyModifiedError{TicketID: id}
	}

	oldPlate := ticket.PlateNumber
	changed, err := e.store.SetPlateOnce(ctx, id, p.String())
	if err != nil {
		if errors.Is(err, store.ErrDuplicateActive) {
			existing, lookupErr := e.dupes.FindActiveDuplicate(ctx, ticket.ParkingLotID, p)
			if lookupErr != nil {
				existing = nil
			}
			return nil, &ConflictError{Reason: "an active ticket already exists for the new plate", Existing: existing}
		}
		return nil, &StoreError{Op: "amend plate", Err: err}
	}
	if !changed {
		return nil, &AlreadyModifiedError{TicketID: id}
	}

	ticket.OriginalPlateNumber = &oldPlate
	ticket.PlateNumber = p.String()
	ticket.PlateModified = true

	result := &Result{Ticket: ticket}
	e.appendAudit(ctx, audit.Entry{
		TicketID:      id,
		OperationType: models.OpModifyPlate,
		OldValue:      map[string]interface{}{"plate_number": oldPlate},
		NewValue:      map[string]interface{}{"plate_number": p.String()},
		DeviceID:      deviceID,
	}, result)
	e.dupes.Forget(ctx, ticket.ParkingLotID, oldPlate)
	e.dupes.Forget(ctx, ticket.ParkingLotID, p.String())
	return result, nil
}

func (e *Engine) loadTicket(ctx context.Context, id uint) (*models.Ticket, error) {
	ticket, err := e.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "load ticket", Err: err}
	}
	return ticket, nil
}

func (e *Engine) appendAudit(ctx context.Context, entry audit.Entry, result *Result) {
	if err := e.audit.Append(ctx, entry); err != nil {
		e.log.Warn("audit append failed",
			zap.Uint("ticket_id", entry.TicketID),
			zap.String("operation", entry.OperationType),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, "audit log write failed: "+entry.OperationType)
	}
}
