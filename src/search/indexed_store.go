package search

import (
	"CafeAPI/src/logging"
	"CafeAPI/src/metrics"
	"CafeAPI/src/types"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// IndexedStore keeps a CafeIndex in step with the wrapped DataStore and
// serves location lookups from the index. The DataStore remains the source
// of truth: a failed index write marks the index stale, and lookups go to the
// store until a Sync succeeds.
type IndexedStore struct {
	types.DataStore
	Index types.CafeIndex

	// mu orders mirrored writes (read side) against Sync (write side) so a
	// rebuild never drops a write that landed while it ran.
	mu    sync.RWMutex
	stale atomic.Bool
}

// NewIndexedStore returns a store whose index is stale until the first Sync.
func NewIndexedStore(store types.DataStore, index types.CafeIndex) *IndexedStore {
	s := &IndexedStore{DataStore: store, Index: index}
	s.stale.Store(true)
	return s
}

// Stale reports whether the index may disagree with the store.
func (s *IndexedStore) Stale() bool {
	return s.stale.Load()
}

// Sync rebuilds the index from the current contents of the store.
func (s *IndexedStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cafes, err := s.DataStore.GetCafes(ctx)
	if err != nil {
		return err
	}
	if err = s.Index.Reindex(ctx, cafes); err != nil {
		s.stale.Store(true)
		return err
	}
	s.stale.Store(false)
	return nil
}

// Run retries Sync every interval while the index is stale, until ctx is done.
func (s *IndexedStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Stale() {
				continue
			}
			if err := s.Sync(ctx); err != nil {
				logging.Warn().Err(err).Msg("Search index resync failed")
				continue
			}
			logging.Info().Msg("Search index resynced")
		}
	}
}

func (s *IndexedStore) GetCafeByLocation(ctx context.Context, location string) (types.Cafe, error) {
	if s.Stale() {
		metrics.IndexFallbacks.Inc()
		return s.DataStore.GetCafeByLocation(ctx, location)
	}

	cafe, err := s.Index.FindByLocation(ctx, location)
	if err == nil || errors.Is(err, types.ErrNotFound) {
		return cafe, err
	}

	logging.Ctx(ctx).Warn().Err(err).Msg("Search index unavailable, falling back to store")
	metrics.IndexFallbacks.Inc()
	return s.DataStore.GetCafeByLocation(ctx, location)
}

func (s *IndexedStore) AddCafe(ctx context.Context, cafe *types.Cafe) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.DataStore.AddCafe(ctx, cafe); err != nil {
		return err
	}
	if err := s.Index.Put(ctx, *cafe); err != nil {
		s.markStale(ctx, err, cafe.ID, "Failed to index new cafe")
	}
	return nil
}

func (s *IndexedStore) UpdateCafePrice(ctx context.Context, id int64, price *string) (types.Cafe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cafe, err := s.DataStore.UpdateCafePrice(ctx, id, price)
	if err != nil {
		return cafe, err
	}
	if err = s.Index.Put(ctx, cafe); err != nil {
		s.markStale(ctx, err, id, "Failed to reindex cafe")
	}
	return cafe, nil
}

func (s *IndexedStore) DeleteCafe(ctx context.Context, id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.DataStore.DeleteCafe(ctx, id); err != nil {
		return err
	}
	if err := s.Index.Remove(ctx, id); err != nil {
		s.markStale(ctx, err, id, "Failed to remove cafe from index")
	}
	return nil
}

func (s *IndexedStore) markStale(ctx context.Context, err error, id int64, msg string) {
	s.stale.Store(true)
	logging.Ctx(ctx).Warn().Err(err).Int64("id", id).Msg(msg)
}
