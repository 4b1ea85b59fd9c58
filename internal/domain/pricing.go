package domain

import "time"

// CalendarDateLayout is DD/MM/YYYY.
const CalendarDateLayout = "02/01/2006"

type CalendarCell struct {
	Value    float64 `json:"value"`
	Disabled bool    `json:"disabled"`
	EntryID  string  `json:"entryId"`
}

type LeadPrice struct {
	EntryID            string    `json:"entryId"`
	Price              float64   `json:"price"`
	StartDate          time.Time `json:"startDate"`
	FormattedStartDate string    `json:"formattedStartDate"`
	AirportID          string    `json:"airportId,omitempty"`
}

// FindCheapestPrice returns the lowest priced enabled entry. Ties go to the
// first one in list order.
func FindCheapestPrice(entries []PriceEntry) (PriceEntry, bool) {
	best := -1
	for i, e := range entries {
		if e.Disabled {
			continue
		}
		if best < 0 || e.Price < entries[best].Price {
			best = i
		}
	}
	if best < 0 {
		return PriceEntry{}, false
	}
	return entries[best], true
}

// CalendarKey is "<DD/MM/YYYY>_<entry id>"; entries sharing a start date
// keep distinct keys.
func CalendarKey(e PriceEntry) string {
	return e.StartDate.Format(CalendarDateLayout) + "_" + e.ID
}

func BuildCalendarMap(entries []PriceEntry) map[string]CalendarCell {
	out := make(map[string]CalendarCell, len(entries))
	for _, e := range entries {
		out[CalendarKey(e)] = CalendarCell{Value: e.Price, Disabled: e.Disabled, EntryID: e.ID}
	}
	return out
}

// ResolveLeadAirportID returns the first airport id out of whatever shape the
// airport field has: []Ref, a single Ref, a bare id, a populated object or a
// list of either. Empty input gives "".
func ResolveLeadAirportID(airports any) string {
	refs := RefsFrom(airports)
	if len(refs) == 0 {
		return ""
	}
	return refs[0].ID()
}

func ResolveLeadPrice(d *Deal) (LeadPrice, bool) {
	cheapest, ok := FindCheapestPrice(d.PriceEntries)
	if !ok {
		return LeadPrice{}, false
	}
	return LeadPrice{
		EntryID:            cheapest.ID,
		Price:              cheapest.Price,
		StartDate:          cheapest.StartDate,
		FormattedStartDate: cheapest.StartDate.Format(CalendarDateLayout),
		AirportID:          ResolveLeadAirportID(cheapest.AirportIDs),
	}, true
}
