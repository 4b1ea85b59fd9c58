package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"vacation_deals/internal/domain"
)

const (
	defaultListLimit = 20
	notAvailable     = "N/A"
)

// DealView is what the storefront deal page renders.
type DealView struct {
	ID        string                         `json:"id"`
	Title     string                         `json:"title"`
	Label     string                         `json:"label"`
	CardLabel string                         `json:"cardLabel"`
	LeadPrice *LeadPriceView                 `json:"leadPrice"`
	Display   string                         `json:"display"` // "from 499.00" or "N/A"
	Calendar  map[string]domain.CalendarCell `json:"calendar,omitempty"`
}

type LeadPriceView struct {
	EntryID            string  `json:"entryId"`
	Price              float64 `json:"price"`
	FormattedStartDate string  `json:"formattedStartDate"`
	AirportID          string  `json:"airportId,omitempty"`
}

type DealList struct {
	Items []DealView `json:"items"`
}

type StorefrontService struct {
	snaps    domain.SnapshotRepository
	cache    domain.Cache
	cacheTTL time.Duration
	sync     *SyncService
}

// NewStorefrontService; sync may be nil, in which case a missing snapshot
// is reported as not found instead of being pulled on demand.
func NewStorefrontService(snaps domain.SnapshotRepository, c domain.Cache, ttl time.Duration, sync *SyncService) *StorefrontService {
	return &StorefrontService{snaps: snaps, cache: c, cacheTTL: ttl, sync: sync}
}

func (s *StorefrontService) GetDeal(ctx context.Context, id string) (DealView, error) {
	key := dealViewKey(id)
	var v DealView
	if ok, _ := s.cache.Get(ctx, key, &v); ok {
		return v, nil
	}

	snap, err := s.snaps.GetSnapshot(ctx, id)
	if errors.Is(err, domain.ErrNotFound) && s.sync != nil {
		if serr := s.sync.SyncDeal(ctx, id); serr != nil {
			return DealView{}, serr
		}
		snap, err = s.snaps.GetSnapshot(ctx, id)
	}
	if err != nil {
		return DealView{}, err
	}

	v = viewFromSnapshot(snap, true)
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	return v, nil
}

func (s *StorefrontService) Calendar(ctx context.Context, id string) (map[string]domain.CalendarCell, error) {
	v, err := s.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Calendar == nil {
		return map[string]domain.CalendarCell{}, nil
	}
	return v.Calendar, nil
}

// ListDeals returns deal cards ordered by lead price (deals without one last).
func (s *StorefrontService) ListDeals(ctx context.Context, q domain.SnapshotQuery) (DealList, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	key := dealListKey(listGeneration(ctx, s.cache), q.Limit, q.MaxPrice)
	var out DealList
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	page, err := s.snaps.ListSnapshots(ctx, q)
	if err != nil {
		return DealList{}, err
	}
	out.Items = make([]DealView, 0, len(page.Items))
	for _, snap := range page.Items {
		out.Items = append(out.Items, viewFromSnapshot(snap, false))
	}

	// optional size guard
	if b, _ := json.Marshal(out); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

func viewFromSnapshot(snap domain.DealSnapshot, withCalendar bool) DealView {
	v := DealView{
		ID:        snap.DealID,
		Title:     snap.Title,
		Label:     snap.Label,
		CardLabel: snap.CardLabel,
		Display:   notAvailable,
	}
	if snap.LeadPrice != nil {
		lp := &LeadPriceView{Price: *snap.LeadPrice}
		if snap.LeadEntryID != nil {
			lp.EntryID = *snap.LeadEntryID
		}
		if snap.LeadStart != nil {
			lp.FormattedStartDate = snap.LeadStart.Format(domain.CalendarDateLayout)
		}
		if snap.LeadAirportID != nil {
			lp.AirportID = *snap.LeadAirportID
		}
		v.LeadPrice = lp
		v.Display = fmt.Sprintf("from %.2f", lp.Price)
	}
	if withCalendar && len(snap.CalendarJSON) > 0 {
		if err := json.Unmarshal(snap.CalendarJSON, &v.Calendar); err != nil {
			log.Error().Err(err).Str("deal", snap.DealID).Msg("snapshot calendar unreadable")
		}
	}
	return v
}
