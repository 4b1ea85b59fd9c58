package domain

import "fmt"

// AssignPrimaryDestination makes dest the primary destination. The new
// primary leaves the multicenter set and every selection made under the
// previous primary is dropped.
func (d *Deal) AssignPrimaryDestination(dest Ref) error {
	if dest.IsZero() {
		return fmt.Errorf("%w: empty destination id", ErrInvalidDestination)
	}
	prev := d.PrimaryDestination
	if prev.Same(dest) {
		// keep whichever side carries a name
		if dest.IsResolved() {
			d.PrimaryDestination = dest
		}
		return nil
	}
	d.PrimaryDestination = dest
	d.untoggled = placeSlot{}
	d.AdditionalDestinations = removeRef(d.AdditionalDestinations, dest.ID())
	if !prev.IsZero() {
		d.SelectedPlaces = filterPlaces(d.SelectedPlaces, func(p SelectedPlace) bool {
			return p.DestinationID != prev.ID()
		})
	}
	return nil
}

func (d *Deal) AddMulticenterDestination(dest Ref) error {
	if dest.IsZero() {
		return fmt.Errorf("%w: empty destination id", ErrInvalidDestination)
	}
	if dest.Same(d.PrimaryDestination) {
		return fmt.Errorf("%w: %s is the primary destination", ErrInvalidDestination, dest.ID())
	}
	if indexRef(d.AdditionalDestinations, dest.ID()) >= 0 {
		return nil
	}
	d.AdditionalDestinations = append(d.AdditionalDestinations, dest)
	return nil
}

// RemoveMulticenterDestination drops the destination and cascades to its
// selected places. An id that is not a multicenter destination, the primary
// included, is a no-op.
func (d *Deal) RemoveMulticenterDestination(id string) {
	if indexRef(d.AdditionalDestinations, id) < 0 {
		return
	}
	d.untoggled = placeSlot{}
	d.AdditionalDestinations = removeRef(d.AdditionalDestinations, id)
	d.SelectedPlaces = filterPlaces(d.SelectedPlaces, func(p SelectedPlace) bool {
		return p.DestinationID != id
	})
}

// TogglePlace selects or deselects one place. Toggling the place that was
// just deselected puts it back at its old position.
func (d *Deal) TogglePlace(destinationID string, place Ref) error {
	if err := d.requireDestination(destinationID); err != nil {
		return err
	}
	if place.IsZero() {
		return nil
	}
	sp := SelectedPlace{PlaceID: place.ID(), DestinationID: destinationID}
	for i, p := range d.SelectedPlaces {
		if p == sp {
			d.SelectedPlaces = append(d.SelectedPlaces[:i:i], d.SelectedPlaces[i+1:]...)
			d.untoggled = placeSlot{place: sp, index: i, set: true}
			return nil
		}
	}
	last := d.untoggled
	d.untoggled = placeSlot{}
	if last.set && last.place == sp && last.index <= len(d.SelectedPlaces) {
		out := make([]SelectedPlace, 0, len(d.SelectedPlaces)+1)
		out = append(out, d.SelectedPlaces[:last.index]...)
		out = append(out, sp)
		d.SelectedPlaces = append(out, d.SelectedPlaces[last.index:]...)
		return nil
	}
	d.SelectedPlaces = append(d.SelectedPlaces, sp)
	return nil
}

// SelectAllPlaces unions the visible places into the destination's
// selection, comparing by resolved id.
func (d *Deal) SelectAllPlaces(destinationID string, visible []Ref) error {
	if err := d.requireDestination(destinationID); err != nil {
		return err
	}
	d.untoggled = placeSlot{}
	have := make(map[string]struct{}, len(d.SelectedPlaces))
	for _, p := range d.SelectedPlaces {
		if p.DestinationID == destinationID {
			have[p.PlaceID] = struct{}{}
		}
	}
	for _, r := range visible {
		if r.IsZero() {
			continue
		}
		if _, ok := have[r.ID()]; ok {
			continue
		}
		have[r.ID()] = struct{}{}
		d.SelectedPlaces = append(d.SelectedPlaces, SelectedPlace{PlaceID: r.ID(), DestinationID: destinationID})
	}
	return nil
}

func (d *Deal) ClearPlaces(destinationID string) {
	d.untoggled = placeSlot{}
	d.SelectedPlaces = filterPlaces(d.SelectedPlaces, func(p SelectedPlace) bool {
		return p.DestinationID != destinationID
	})
}

func (d *Deal) CombinedSelectedPlaces() []SelectedPlace {
	out := make([]SelectedPlace, len(d.SelectedPlaces))
	copy(out, d.SelectedPlaces)
	return out
}

// HasDestination reports whether id is the primary or a multicenter destination.
func (d *Deal) HasDestination(id string) bool {
	if id == "" {
		return false
	}
	return d.PrimaryDestination.ID() == id || indexRef(d.AdditionalDestinations, id) >= 0
}

func (d *Deal) requireDestination(id string) error {
	if !d.HasDestination(id) {
		return fmt.Errorf("%w: %q", ErrUnknownDestination, id)
	}
	return nil
}

// Normalize restores the aggregate invariants on data that did not go
// through the methods above (e.g. a record read back from the deals API):
// the primary is removed from the multicenter set, duplicates and
// selections for unknown destinations are dropped.
func (d *Deal) Normalize() {
	d.untoggled = placeSlot{}
	var extra []Ref
	seen := map[string]struct{}{}
	for _, r := range d.AdditionalDestinations {
		if r.IsZero() || r.Same(d.PrimaryDestination) {
			continue
		}
		if _, ok := seen[r.ID()]; ok {
			continue
		}
		seen[r.ID()] = struct{}{}
		extra = append(extra, r)
	}
	d.AdditionalDestinations = extra

	dup := map[SelectedPlace]struct{}{}
	d.SelectedPlaces = filterPlaces(d.SelectedPlaces, func(p SelectedPlace) bool {
		if p.PlaceID == "" || !d.HasDestination(p.DestinationID) {
			return false
		}
		if _, ok := dup[p]; ok {
			return false
		}
		dup[p] = struct{}{}
		return true
	})
}

func filterPlaces(in []SelectedPlace, keep func(SelectedPlace) bool) []SelectedPlace {
	out := make([]SelectedPlace, 0, len(in))
	for _, p := range in {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func indexRef(refs []Ref, id string) int {
	for i, r := range refs {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func removeRef(refs []Ref, id string) []Ref {
	i := indexRef(refs, id)
	if i < 0 {
		return refs
	}
	out := make([]Ref, 0, len(refs)-1)
	out = append(out, refs[:i]...)
	return append(out, refs[i+1:]...)
}
