package engine

import (
	"fmt"

	"github.com/adrizkya/parkirin/internal/models"
)

// ConflictError covers both duplicate-active-plate conflicts on open and
// stale-state conflicts on close/undo. Existing carries the colliding or
// current ticket so the caller can present an actionable choice.
type ConflictError struct {
	Reason   string
	Existing *models.Ticket
}

func (e *ConflictError) Error() string {
	if e.Existing != nil {
		return fmt.Sprintf("%s (ticket %d)", e.Reason, e.Existing.ID)
	}
	return e.Reason
}

// AlreadyModifiedError rejects a second plate amendment. Permanent for
// the ticket.
type AlreadyModifiedError struct {
	TicketID uint
}

func (e *AlreadyModifiedError) Error() string {
	return fmt.Sprintf("plate of ticket %d has already been modified once", e.TicketID)
}

// StoreError wraps an unexpected backing-store failure. The caller may
// retry manually; Open must be re-run in full, including the duplicate
// check, never just the write.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
