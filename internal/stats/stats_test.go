package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adrizkya/parkirin/internal/audit"
	"github.com/adrizkya/parkirin/internal/dupe"
	"github.com/adrizkya/parkirin/internal/engine"
	"github.com/adrizkya/parkirin/internal/models"
	"github.com/adrizkya/parkirin/internal/store"
)

type nopSink struct{}

func (nopSink) Append(ctx context.Context, e audit.Entry) error { return nil }

func TestSnapshotFreshDay(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	eng := engine.New(st, dupe.NewResolver(st, nil, zap.NewNop()), nopSink{}, zap.NewNop())

	var closed *models.Ticket
	for _, p := range []string{"AA-111", "BB-222", "CC-333"} {
		res, err := eng.Open(ctx, engine.OpenRequest{LotID: "default", PlateNumber: p, DeviceID: "d"})
		require.NoError(t, err)
		closed = res.Ticket
	}
	_, err := eng.Close(ctx, closed.ID, "d")
	require.NoError(t, err)

	agg := NewAggregator(st)
	snap, err := agg.Snapshot(ctx, "default")
	require.NoError(t, err)

	assert.Equal(t, Snapshot{CurrentActive: 2, TodayEntries: 3, TodayExits: 1}, snap)
}

func TestSnapshotExcludesEarlierDays(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	yesterday := time.Now().Add(-30 * time.Hour)
	exitYesterday := yesterday.Add(time.Hour)
	require.NoError(t, st.Create(ctx, &models.Ticket{
		PlateNumber: "OLD-1", EntryTime: yesterday, ExitTime: &exitYesterday,
		Status: models.StatusExited, ParkingLotID: "default",
	}))
	require.NoError(t, st.Create(ctx, &models.Ticket{
		PlateNumber: "OLD-2", EntryTime: yesterday,
		Status: models.StatusActive, ParkingLotID: "default",
	}))
	require.NoError(t, st.Create(ctx, &models.Ticket{
		PlateNumber: "NEW-1", EntryTime: time.Now(),
		Status: models.StatusActive, ParkingLotID: "default",
	}))

	snap, err := NewAggregator(st).Snapshot(ctx, "default")
	require.NoError(t, err)

	assert.Equal(t, int64(2), snap.CurrentActive, "active count ignores the day boundary")
	assert.Equal(t, int64(1), snap.TodayEntries)
	assert.Equal(t, int64(0), snap.TodayExits)
}

func TestSnapshotScopedByLot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Create(ctx, &models.Ticket{
		PlateNumber: "AA-111", EntryTime: time.Now(),
		Status: models.StatusActive, ParkingLotID: "lot-a",
	}))

	snap, err := NewAggregator(st).Snapshot(ctx, "lot-b")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)
}
