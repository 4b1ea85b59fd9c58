package domain

import (
	"strings"
	"time"
)

// DealPayload is the document written to the deals API. Every reference is
// a bare id; the API answers with the same document populated.
type DealPayload struct {
	ID             string          `json:"_id,omitempty"`
	Title          string          `json:"title" validate:"required,max=255"`
	Destination    string          `json:"destination" validate:"required"`
	Destinations   []string        `json:"destinations"`
	SelectedPlaces []SelectedPlace `json:"selectedPlaces" validate:"dive"`
	Prices         []PricePayload  `json:"prices" validate:"dive"`
}

type PricePayload struct {
	ID        string   `json:"_id,omitempty"`
	Country   string   `json:"country" validate:"required,oneof=UK Ireland Canada"`
	Airport   []string `json:"airport"`
	Hotel     string   `json:"hotel" validate:"required"`
	StartDate string   `json:"startdate" validate:"required"`
	EndDate   string   `json:"enddate" validate:"required"`
	Price     float64  `json:"price" validate:"gte=0"`
	// PriceSwitch true hides the price from the storefront.
	PriceSwitch   bool          `json:"priceswitch"`
	FlightDetails FlightDetails `json:"flightDetails"`
}

func ToPayload(d *Deal) DealPayload {
	p := DealPayload{
		ID:             d.ID,
		Title:          strings.TrimSpace(d.Title),
		Destination:    d.PrimaryDestination.ID(),
		Destinations:   RefIDs(d.AdditionalDestinations),
		SelectedPlaces: d.CombinedSelectedPlaces(),
		Prices:         make([]PricePayload, 0, len(d.PriceEntries)),
	}
	for _, e := range d.PriceEntries {
		pp := PricePayload{
			Country:       string(e.Country),
			Airport:       RefIDs(e.AirportIDs),
			Hotel:         e.HotelID.ID(),
			StartDate:     formatDate(e.StartDate),
			EndDate:       formatDate(e.EndDate),
			Price:         e.Price,
			PriceSwitch:   e.Disabled,
			FlightDetails: e.FlightDetails,
		}
		// draft ids are local only
		if e.Saved {
			pp.ID = e.ID
		}
		p.Prices = append(p.Prices, pp)
	}
	return p
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

var dateLayouts = []string{time.DateOnly, time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate accepts date-only and RFC3339 forms. Date-only values are
// calendar dates in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
