package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vacation_deals/internal/domain"
)

// EditorService backs the admin deal editor: it loads deals from the deals
// API, submits edited aggregates and keeps the storefront snapshot in step.
type EditorService struct {
	api   domain.DealsAPI
	snaps domain.SnapshotRepository
	cache domain.Cache
	proj  *Projector
}

func NewEditorService(api domain.DealsAPI, snaps domain.SnapshotRepository, cache domain.Cache, proj *Projector) *EditorService {
	return &EditorService{api: api, snaps: snaps, cache: cache, proj: proj}
}

func (s *EditorService) Load(ctx context.Context, id string) (*domain.Deal, error) {
	rec, err := s.api.GetDeal(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
		}
		return nil, external("load deal", err)
	}
	d := MapDeal(rec)
	return &d, nil
}

// Save validates and submits d. On success d is replaced by the record the
// API returned (its entries become Saved). On failure d is left as edited.
func (s *EditorService) Save(ctx context.Context, d *domain.Deal) error {
	payload, err := ValidateSubmission(d)
	if err != nil {
		return err
	}

	var rec map[string]any
	if d.IsNew() {
		rec, err = s.api.CreateDeal(ctx, payload)
	} else {
		rec, err = s.api.UpdateDeal(ctx, d.ID, payload)
	}
	if err != nil {
		return external("save deal", err)
	}

	saved := MapDeal(rec)
	if saved.ID == "" {
		saved.ID = d.ID
	}
	*d = saved
	log.Info().Str("deal", d.ID).Int("prices", len(d.PriceEntries)).Msg("deal saved")

	s.refresh(ctx, saved, rec)
	return nil
}

func (s *EditorService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteDeal(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
		}
		return external("delete deal", err)
	}
	if s.snaps != nil {
		if err := s.snaps.DeleteSnapshot(ctx, id); err != nil {
			log.Warn().Err(err).Str("deal", id).Msg("snapshot delete failed")
		}
	}
	s.evict(ctx, id)
	return nil
}

// RemovePrice deletes the entry locally and, when it was already stored,
// remotely. A failed remote delete is reported but not undone locally.
func (s *EditorService) RemovePrice(ctx context.Context, d *domain.Deal, index int) error {
	removed, err := d.RemoveEntry(index)
	if err != nil {
		return err
	}
	if !removed.Saved || d.IsNew() {
		return nil
	}
	if err := s.api.DeletePrice(ctx, d.ID, removed.ID); err != nil {
		return external("delete price", err)
	}
	s.evict(ctx, d.ID)
	return nil
}

// SetPriceDisabled hides (or shows) one price on the storefront and saves.
func (s *EditorService) SetPriceDisabled(ctx context.Context, d *domain.Deal, index int, disabled bool) error {
	if err := d.UpdateEntry(index, domain.PriceEntryPatch{Disabled: &disabled}); err != nil {
		return err
	}
	return s.Save(ctx, d)
}

func (s *EditorService) refresh(ctx context.Context, d domain.Deal, rec map[string]any) {
	if s.snaps != nil && s.proj != nil {
		if err := s.snaps.UpsertSnapshot(ctx, s.proj.Project(ctx, d, rec)); err != nil {
			// the sync worker will catch up
			log.Warn().Err(err).Str("deal", d.ID).Msg("snapshot upsert failed")
		}
	}
	s.evict(ctx, d.ID)
}

func (s *EditorService) evict(ctx context.Context, id string) {
	evictDeal(ctx, s.cache, id)
}

// evictDeal drops the deal view and starts a new listing generation.
func evictDeal(ctx context.Context, c domain.Cache, id string) {
	if c == nil {
		return
	}
	if err := c.Del(ctx, dealViewKey(id)); err != nil {
		log.Warn().Err(err).Str("deal", id).Msg("deal view evict failed")
	}
	if err := c.Set(ctx, listGenKey, uuid.NewString(), 0); err != nil {
		log.Warn().Err(err).Str("deal", id).Msg("list generation bump failed")
	}
}

func listGeneration(ctx context.Context, c domain.Cache) string {
	var gen string
	if ok, _ := c.Get(ctx, listGenKey, &gen); ok && gen != "" {
		return gen
	}
	return "0"
}

// Edit loads deal id, applies one change and saves it. When change fails
// nothing is submitted.
func (s *EditorService) Edit(ctx context.Context, id string, change func(*domain.Deal) error) (*domain.Deal, error) {
	d, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(d); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *EditorService) AssignPrimary(ctx context.Context, id string, dest domain.Ref) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error { return d.AssignPrimaryDestination(dest) })
}

func (s *EditorService) AddDestination(ctx context.Context, id string, dest domain.Ref) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error { return d.AddMulticenterDestination(dest) })
}

func (s *EditorService) RemoveDestination(ctx context.Context, id, destID string) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error {
		d.RemoveMulticenterDestination(destID)
		return nil
	})
}

func (s *EditorService) TogglePlace(ctx context.Context, id, destID string, place domain.Ref) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error { return d.TogglePlace(destID, place) })
}

// SelectAllPlaces selects the visible places, or every directory place of
// the destination when visible is empty.
func (s *EditorService) SelectAllPlaces(ctx context.Context, id, destID string, visible []domain.Ref) (*domain.Deal, error) {
	if len(visible) == 0 {
		places, err := s.directoryPlaces(ctx, destID)
		if err != nil {
			return nil, err
		}
		visible = places
	}
	return s.Edit(ctx, id, func(d *domain.Deal) error { return d.SelectAllPlaces(destID, visible) })
}

func (s *EditorService) ClearPlaces(ctx context.Context, id, destID string) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error {
		if !d.HasDestination(destID) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownDestination, destID)
		}
		d.ClearPlaces(destID)
		return nil
	})
}

// AddPrice appends a draft entry filled from patch and saves the deal.
func (s *EditorService) AddPrice(ctx context.Context, id string, patch domain.PriceEntryPatch) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error { return d.UpdateEntry(d.AddEntry(), patch) })
}

func (s *EditorService) UpdatePrice(ctx context.Context, id string, index int, patch domain.PriceEntryPatch) (*domain.Deal, error) {
	return s.Edit(ctx, id, func(d *domain.Deal) error { return d.UpdateEntry(index, patch) })
}

func (s *EditorService) directoryPlaces(ctx context.Context, destID string) ([]domain.Ref, error) {
	if s.proj == nil || s.proj.dir == nil {
		return nil, nil
	}
	idx, err := s.proj.dir.DestinationIndex(ctx)
	if err != nil {
		return nil, err
	}
	dest, ok := idx[destID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Ref, 0, len(dest.Places))
	for _, p := range dest.Places {
		out = append(out, domain.Resolved(p.ID, p.Name))
	}
	return out, nil
}
