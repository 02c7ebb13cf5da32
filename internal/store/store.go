// Package store persists parking tickets. All mutation goes through the
// lifecycle engine; handlers only read, except for the administrative
// delete escape hatch.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adrizkya/parkirin/internal/models"
)

var (
	ErrNotFound = errors.New("ticket not found")
	// ErrDuplicateActive is returned when a write would leave two active
	// tickets with the same plate in one lot. It is the store-level
	// second line of defense behind the resolver's read-time check.
	ErrDuplicateActive = errors.New("active ticket already exists for plate")
)

type ListQuery struct {
	LotID       string
	Status      models.TicketStatus // empty = all statuses
	PlateSearch string              // case-insensitive substring match
	Limit       int
}

// TicketStore is the persisted ticket collection.
type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket) error
	ByID(ctx context.Context, id uint) (*models.Ticket, error)
	List(ctx context.Context, q ListQuery) ([]models.Ticket, error)

	// ActiveByPlate finds the most recently opened active ticket whose
	// plate matches exactly. ActiveByPlateFold is the case-insensitive
	// fallback over the same predicate.
	ActiveByPlate(ctx context.Context, lotID, plateNumber string) (*models.Ticket, error)
	ActiveByPlateFold(ctx context.Context, lotID, plateNumber string) (*models.Ticket, error)

	// HasNewerEntry reports whether any ticket for the plate in the lot
	// has an entry time after the given instant, regardless of status.
	HasNewerEntry(ctx context.Context, lotID, plateNumber string, after time.Time) (bool, error)

	// Transition applies the column updates only if the ticket is
	// currently in the from status. It reports whether a row changed.
	Transition(ctx context.Context, id uint, from models.TicketStatus, updates map[string]interface{}) (bool, error)

	// SetPlateOnce amends the plate only if it has never been amended,
	// recording the previous plate as the original. It reports whether a
	// row changed.
	SetPlateOnce(ctx context.Context, id uint, newPlate string) (bool, error)

	// Delete removes a ticket unconditionally. Administrative bypass:
	// not audited, no status guard.
	Delete(ctx context.Context, id uint) error

	CountActive(ctx context.Context, lotID string) (int64, error)
	CountEntriesSince(ctx context.Context, lotID string, since time.Time) (int64, error)
	CountExitsSince(ctx context.Context, lotID string, since time.Time) (int64, error)
}

// EscapeLike escapes LIKE/ILIKE metacharacters so a plate string is
// matched literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
