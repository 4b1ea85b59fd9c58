package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// PriceEntryPatch is merged field by field into an entry; nil fields are left alone.
type PriceEntryPatch struct {
	Country       *Country
	StartDate     *time.Time
	EndDate       *time.Time
	AirportIDs    *[]Ref
	HotelID       *Ref
	Price         *float64
	Disabled      *bool
	FlightDetails *FlightDetails
}

// NightsCheck is advisory: a mismatch never blocks a save.
type NightsCheck struct {
	Agrees       bool `json:"agrees"`
	ActualNights int  `json:"actualNights"`
}

// AddEntry appends an empty draft entry and returns its index.
func (d *Deal) AddEntry() int {
	d.PriceEntries = append(d.PriceEntries, PriceEntry{
		ID:     uuid.NewString(),
		DealID: d.ID,
	})
	return len(d.PriceEntries) - 1
}

func (d *Deal) UpdateEntry(index int, patch PriceEntryPatch) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	e := d.PriceEntries[index]
	if patch.Country != nil {
		e.Country = *patch.Country
	}
	if patch.StartDate != nil {
		e.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		e.EndDate = *patch.EndDate
	}
	if patch.AirportIDs != nil {
		e.AirportIDs = append([]Ref(nil), (*patch.AirportIDs)...)
	}
	if patch.HotelID != nil {
		e.HotelID = *patch.HotelID
	}
	if patch.Price != nil {
		e.Price = *patch.Price
	}
	if patch.Disabled != nil {
		e.Disabled = *patch.Disabled
	}
	if patch.FlightDetails != nil {
		e.FlightDetails = *patch.FlightDetails
	}
	if !e.StartDate.IsZero() && !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRange,
			e.EndDate.Format(time.DateOnly), e.StartDate.Format(time.DateOnly))
	}
	d.PriceEntries[index] = e
	return nil
}

// RemoveEntry deletes the entry permanently and returns it so the caller
// can issue the matching remote delete.
func (d *Deal) RemoveEntry(index int) (PriceEntry, error) {
	if err := d.checkIndex(index); err != nil {
		return PriceEntry{}, err
	}
	removed := d.PriceEntries[index]
	out := make([]PriceEntry, 0, len(d.PriceEntries)-1)
	out = append(out, d.PriceEntries[:index]...)
	d.PriceEntries = append(out, d.PriceEntries[index+1:]...)
	return removed, nil
}

func (d *Deal) checkIndex(index int) error {
	if index < 0 || index >= len(d.PriceEntries) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(d.PriceEntries))
	}
	return nil
}

// ValidateDateRange rejects end < start and otherwise compares the real
// number of nights against what the deal declares.
func ValidateDateRange(e PriceEntry, declaredNights int) (NightsCheck, error) {
	if e.EndDate.Before(e.StartDate) {
		return NightsCheck{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange,
			e.EndDate.Format(time.DateOnly), e.StartDate.Format(time.DateOnly))
	}
	nights := int(math.Ceil(e.EndDate.Sub(e.StartDate).Hours() / 24))
	return NightsCheck{Agrees: nights == declaredNights, ActualNights: nights}, nil
}
