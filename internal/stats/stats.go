// Package stats computes derived, read-only counters from the ticket
// store. It has no write path.
package stats

import (
	"context"
	"time"

	"github.com/adrizkya/parkirin/internal/store"
)

type Snapshot struct {
	CurrentActive int64 `json:"current_active"`
	TodayEntries  int64 `json:"today_entries"`
	TodayExits    int64 `json:"today_exits"`
}

type Aggregator struct {
	store store.TicketStore
	now   func() time.Time
}

func NewAggregator(s store.TicketStore) *Aggregator {
	return &Aggregator{store: s, now: time.Now}
}

// Snapshot counts currently parked vehicles and today's entries and
// exits. "Today" starts at local midnight of the server clock; terminals
// in other time zones see the server's day boundary.
func (a *Aggregator) Snapshot(ctx context.Context, lotID string) (Snapshot, error) {
	now := a.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	active, err := a.store.CountActive(ctx, lotID)
	if err != nil {
		return Snapshot{}, err
	}
	entries, err := a.store.CountEntriesSince(ctx, lotID, todayStart)
	if err != nil {
		return Snapshot{}, err
	}
	exits, err := a.store.CountExitsSince(ctx, lotID, todayStart)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		CurrentActive: active,
		TodayEntries:  entries,
		TodayExits:    exits,
	}, nil
}
