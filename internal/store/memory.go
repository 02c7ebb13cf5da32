package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrizkya/parkirin/internal/models"
)

// MemoryStore is an in-memory TicketStore with the same semantics as the
// Postgres-backed one, including the partial uniqueness guarantee on
// active plates. Used by the test suites and for local development
// without a database.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[uint]*models.Ticket
	nextID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[uint]*models.Ticket), nextID: 1}
}

func (s *MemoryStore) Create(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Status == models.StatusActive && s.activeLocked(t.ParkingLotID, t.PlateNumber) != nil {
		return ErrDuplicateActive
	}

	now := time.Now()
	t.ID = s.nextID
	s.nextID++
	t.CreatedAt = now
	t.UpdatedAt = now
	copied := *t
	s.tickets[t.ID] = &copied
	return nil
}

func (s *MemoryStore) ByID(ctx context.Context, id uint) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, q ListQuery) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Ticket
	for _, t := range s.tickets {
		if t.ParkingLotID != q.LotID {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.PlateSearch != "" &&
			!strings.Contains(strings.ToLower(t.PlateNumber), strings.ToLower(q.PlateSearch)) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// activeLocked returns the most recently opened active ticket matching
// the plate case-insensitively. Exact and folded lookup coincide here;
// the split only matters for the SQL fast path.
func (s *MemoryStore) activeLocked(lotID, plateNumber string) *models.Ticket {
	var best *models.Ticket
	for _, t := range s.tickets {
		if t.ParkingLotID != lotID || t.Status != models.StatusActive {
			continue
		}
		if !strings.EqualFold(t.PlateNumber, plateNumber) {
			continue
		}
		if best == nil || t.EntryTime.After(best.EntryTime) {
			best = t
		}
	}
	return best
}

func (s *MemoryStore) ActiveByPlate(ctx context.Context, lotID, plateNumber string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *models.Ticket
	for _, t := range s.tickets {
		if t.ParkingLotID != lotID || t.Status != models.StatusActive || t.PlateNumber != plateNumber {
			continue
		}
		if best == nil || t.EntryTime.After(best.EntryTime) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func (s *MemoryStore) ActiveByPlateFold(ctx context.Context, lotID, plateNumber string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.activeLocked(lotID, plateNumber); t != nil {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) HasNewerEntry(ctx context.Context, lotID, plateNumber string, after time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tickets {
		if t.ParkingLotID == lotID &&
			strings.EqualFold(t.PlateNumber, plateNumber) &&
			t.EntryTime.After(after) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id uint, from models.TicketStatus, updates map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok || t.Status != from {
		return false, nil
	}

	if v, ok := updates["status"]; ok {
		next, _ := v.(models.TicketStatus)
		if next == models.StatusActive && t.Status != models.StatusActive {
			if dup := s.activeLocked(t.ParkingLotID, t.PlateNumber); dup != nil && dup.ID != t.ID {
				return false, ErrDuplicateActive
			}
		}
		t.Status = next
	}
	if v, ok := updates["exit_time"]; ok {
		switch exit := v.(type) {
		case nil:
			t.ExitTime = nil
		case time.Time:
			t.ExitTime = &exit
		case *time.Time:
			t.ExitTime = exit
		}
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) SetPlateOnce(ctx context.Context, id uint, newPlate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok || t.PlateModified {
		return false, nil
	}
	if t.Status == models.StatusActive {
		if dup := s.activeLocked(t.ParkingLotID, newPlate); dup != nil && dup.ID != t.ID {
			return false, ErrDuplicateActive
		}
	}
	original := t.PlateNumber
	t.OriginalPlateNumber = &original
	t.PlateNumber = newPlate
	t.PlateModified = true
	t.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}

func (s *MemoryStore) CountActive(ctx context.Context, lotID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.tickets {
		if t.ParkingLotID == lotID && t.Status == models.StatusActive {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountEntriesSince(ctx context.Context, lotID string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.tickets {
		if t.ParkingLotID == lotID && !t.EntryTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountExitsSince(ctx context.Context, lotID string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.tickets {
		if t.ParkingLotID == lotID && t.Status == models.StatusExited &&
			t.ExitTime != nil && !t.ExitTime.Before(since) {
			count++
		}
	}
	return count, nil
}
