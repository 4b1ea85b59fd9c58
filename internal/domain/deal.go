package domain

import "time"

type Place struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Destination struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Places []Place `json:"places"` // ordered, owned by this destination
}

// PlaceName looks up one of the destination's own places.
func (d Destination) PlaceName(id string) (string, bool) {
	for _, p := range d.Places {
		if p.ID == id {
			return p.Name, true
		}
	}
	return "", false
}

type Hotel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Airport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Country is the market a price is sold in.
type Country string

const (
	CountryUK      Country = "UK"
	CountryIreland Country = "Ireland"
	CountryCanada  Country = "Canada"
)

var Countries = []Country{CountryUK, CountryIreland, CountryCanada}

func (c Country) Valid() bool {
	for _, k := range Countries {
		if c == k {
			return true
		}
	}
	return false
}

type SelectedPlace struct {
	PlaceID       string `json:"placeId" validate:"required"`
	DestinationID string `json:"destinationId" validate:"required"`
}

type FlightLeg struct {
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Airline       string `json:"airline"`
	FlightNumber  string `json:"flightNumber"`
}

type FlightDetails struct {
	Outbound     FlightLeg `json:"outbound"`
	ReturnFlight FlightLeg `json:"returnFlight"`
}

func (f FlightDetails) IsZero() bool { return f == FlightDetails{} }

type PriceEntry struct {
	ID            string
	DealID        string
	Country       Country
	StartDate     time.Time
	EndDate       time.Time
	AirportIDs    []Ref
	HotelID       Ref
	Price         float64
	Disabled      bool // hidden from the storefront, still stored
	FlightDetails FlightDetails
	Saved         bool // confirmed by the deals API
}

// EntryState is the lifecycle of a price entry. A deleted entry has no
// state: RemoveEntry takes it out of the deal.
type EntryState string

const (
	EntryDraft    EntryState = "draft"
	EntrySaved    EntryState = "saved"
	EntryDisabled EntryState = "disabled"
)

func (e PriceEntry) State() EntryState {
	switch {
	case !e.Saved:
		return EntryDraft
	case e.Disabled:
		return EntryDisabled
	default:
		return EntrySaved
	}
}

// Deal is the aggregate edited by the back office. Selections and price
// entries are only changed through its methods.
type Deal struct {
	ID                     string
	Title                  string
	PrimaryDestination     Ref
	AdditionalDestinations []Ref // multicenter, never contains the primary
	SelectedPlaces         []SelectedPlace
	PriceEntries           []PriceEntry

	untoggled placeSlot // last place TogglePlace took out, for an exact undo
}

type placeSlot struct {
	place SelectedPlace
	index int
	set   bool
}

// IsNew reports whether the deal has never been persisted.
func (d *Deal) IsNew() bool { return d.ID == "" }

// Destinations resolves the deal's destination refs against a directory.
// A destination missing from the directory keeps its populated name, if any.
func (d *Deal) Destinations(dir map[string]Destination) (*Destination, []Destination) {
	lookup := func(r Ref) Destination {
		if dest, ok := dir[r.ID()]; ok {
			return dest
		}
		name, _ := r.DisplayName()
		return Destination{ID: r.ID(), Name: name}
	}
	var primary *Destination
	if !d.PrimaryDestination.IsZero() {
		p := lookup(d.PrimaryDestination)
		primary = &p
	}
	extra := make([]Destination, 0, len(d.AdditionalDestinations))
	for _, r := range d.AdditionalDestinations {
		extra = append(extra, lookup(r))
	}
	return primary, extra
}
