package app

import (
	"context"
	"errors"
	"fmt"

	"vacation_deals/internal/domain"
)

// SyncService copies deals from the deals API into the storefront snapshot
// table.
type SyncService struct {
	api   domain.DealsAPI
	snaps domain.SnapshotRepository
	cache domain.Cache
	proj  *Projector
}

func NewSyncService(api domain.DealsAPI, snaps domain.SnapshotRepository, cache domain.Cache, proj *Projector) *SyncService {
	return &SyncService{api: api, snaps: snaps, cache: cache, proj: proj}
}

// DealIDs lists every deal id known to the deals API.
func (s *SyncService) DealIDs(ctx context.Context) ([]string, error) {
	docs, err := s.api.ListDeals(ctx)
	if err != nil {
		return nil, external("list deals", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id := aliasStr(doc, dealAliases, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *SyncService) SyncDeal(ctx context.Context, id string) error {
	rec, err := s.api.GetDeal(ctx, id)
	if err != nil {
		switch {
		// gone upstream: record the miss and stop serving the old snapshot
		case errors.Is(err, domain.ErrNotFound):
			_ = s.snaps.LogMiss(ctx, id, 404, "not found")
			if err := s.snaps.DeleteSnapshot(ctx, id); err != nil {
				return fmt.Errorf("delete snapshot %s: %w", id, err)
			}
			evictDeal(ctx, s.cache, id)
			return nil
		case errors.Is(err, domain.ErrUnauthorized):
			_ = s.snaps.LogMiss(ctx, id, 403, "unauthorized")
			return nil
		}
		return external("sync deal", err)
	}

	d := MapDeal(rec)
	if d.ID == "" {
		d.ID = id
	}
	if err := s.snaps.UpsertSnapshot(ctx, s.proj.Project(ctx, d, rec)); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", id, err)
	}
	evictDeal(ctx, s.cache, id)
	return nil
}
