package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"vacation_deals/internal/domain"
)

// Projector derives the storefront snapshot (labels, lead price, calendar)
// from a deal.
type Projector struct {
	dir    *DirectoryService
	labels domain.LabelFormatter
}

func NewProjector(dir *DirectoryService, labels domain.LabelFormatter) *Projector {
	return &Projector{dir: dir, labels: labels}
}

func (p *Projector) Project(ctx context.Context, d domain.Deal, raw map[string]any) domain.DealSnapshot {
	var idx map[string]domain.Destination
	if p.dir != nil {
		m, err := p.dir.DestinationIndex(ctx)
		if err != nil {
			// populated names on the record are still usable
			log.Warn().Err(err).Str("deal", d.ID).Msg("destination directory unavailable for label")
		}
		idx = m
	}
	primary, extra := d.Destinations(idx)

	snap := domain.DealSnapshot{
		DealID:     d.ID,
		Title:      d.Title,
		Label:      domain.FormatLabel(primary, extra, d.SelectedPlaces),
		CardLabel:  p.labels.Format(primary, extra, d.SelectedPlaces),
		PriceCount: len(d.PriceEntries),
	}
	for _, e := range d.PriceEntries {
		if !e.Disabled {
			snap.EnabledCount++
		}
	}

	if lp, ok := domain.ResolveLeadPrice(&d); ok {
		entryID, price, start := lp.EntryID, lp.Price, lp.StartDate
		snap.LeadEntryID = &entryID
		snap.LeadPrice = &price
		snap.LeadStart = &start
		if lp.AirportID != "" {
			airport := lp.AirportID
			snap.LeadAirportID = &airport
		}
	}

	cal, err := json.Marshal(domain.BuildCalendarMap(d.PriceEntries))
	if err != nil {
		log.Error().Err(err).Str("context", "Project").Msg("marshal calendar failed")
	}
	snap.CalendarJSON = cal

	if raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			log.Error().Err(err).Str("context", "Project").Msg("marshal raw deal failed")
		}
		snap.RawJSON = b
	}
	return snap
}
