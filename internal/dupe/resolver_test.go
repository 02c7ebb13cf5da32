package dupe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adrizkya/parkirin/internal/models"
	"github.com/adrizkya/parkirin/internal/plate"
	"github.com/adrizkya/parkirin/internal/store"
)

func TestFindActiveDuplicate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	r := NewResolver(st, nil, zap.NewNop())

	mustPlate := func(s string) plate.Plate {
		p, err := plate.Normalize(s)
		require.NoError(t, err)
		return p
	}

	none, err := r.FindActiveDuplicate(ctx, "default", mustPlate("ABC-123"))
	require.NoError(t, err)
	assert.Nil(t, none)

	active := &models.Ticket{
		PlateNumber: "ABC-123", EntryTime: time.Now(),
		Status: models.StatusActive, ParkingLotID: "default",
	}
	require.NoError(t, st.Create(ctx, active))

	exact, err := r.FindActiveDuplicate(ctx, "default", mustPlate("ABC-123"))
	require.NoError(t, err)
	require.NotNil(t, exact)
	assert.Equal(t, active.ID, exact.ID)

	// OCR-derived and hand-typed plates can disagree on casing only
	folded, err := r.FindActiveDuplicate(ctx, "default", mustPlate("abc-123"))
	require.NoError(t, err)
	require.NotNil(t, folded)
	assert.Equal(t, active.ID, folded.ID)

	exited := &models.Ticket{
		PlateNumber: "DEF-456", EntryTime: time.Now(),
		Status: models.StatusExited, ParkingLotID: "default",
	}
	require.NoError(t, st.Create(ctx, exited))

	none, err = r.FindActiveDuplicate(ctx, "default", mustPlate("DEF-456"))
	require.NoError(t, err)
	assert.Nil(t, none, "exited tickets are not duplicates")
}

func TestPeekFallsBackToFreshLookup(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	// no cache configured: Peek degrades to the authoritative lookup
	r := NewResolver(st, nil, zap.NewNop())

	p, err := plate.Normalize("B 1234 XY")
	require.NoError(t, err)

	got, err := r.Peek(ctx, "default", p)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, st.Create(ctx, &models.Ticket{
		PlateNumber: "B 1234 XY", EntryTime: time.Now(),
		Status: models.StatusActive, ParkingLotID: "default",
	}))

	got, err = r.Peek(ctx, "default", p)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
