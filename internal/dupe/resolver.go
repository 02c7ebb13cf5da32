// Package dupe decides whether an open ticket already exists for a
// candidate plate. Exact format may differ between an OCR-derived and a
// hand-typed plate for the same vehicle, so an exact match is tried
// first and a case-insensitive match second.
package dupe

import (
	"context"

	"go.uber.org/zap"

	"github.com/adrizkya/parkirin/internal/models"
	"github.com/adrizkya/parkirin/internal/plate"
	"github.com/adrizkya/parkirin/internal/store"
)

type Resolver struct {
	store store.TicketStore
	cache *Cache
	log   *zap.Logger
}

func NewResolver(s store.TicketStore, cache *Cache, log *zap.Logger) *Resolver {
	return &Resolver{store: s, cache: cache, log: log}
}

// FindActiveDuplicate performs a fresh, authoritative lookup. The engine
// calls it immediately before every write; the cache is only refreshed,
// never read.
func (r *Resolver) FindActiveDuplicate(ctx context.Context, lotID string, p plate.Plate) (*models.Ticket, error) {
	ticket, err := r.store.ActiveByPlate(ctx, lotID, p.String())
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		ticket, err = r.store.ActiveByPlateFold(ctx, lotID, p.String())
		if err != nil {
			return nil, err
		}
	}
	r.cache.put(ctx, lotID, p.Fold(), ticket)
	return ticket, nil
}

// Peek serves the advisory pre-check endpoint. It may answer from the
// cache and must never be treated as authoritative.
func (r *Resolver) Peek(ctx context.Context, lotID string, p plate.Plate) (*models.Ticket, error) {
	if ticket, ok := r.cache.get(ctx, lotID, p.Fold()); ok {
		return ticket, nil
	}
	return r.FindActiveDuplicate(ctx, lotID, p)
}

// Forget drops any cached lookup for the plate, called after the engine
// changes its state.
func (r *Resolver) Forget(ctx context.Context, lotID string, plateNumber string) {
	p, err := plate.Normalize(plateNumber)
	if err != nil {
		return
	}
	r.cache.Invalidate(ctx, lotID, p.Fold())
}
