package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	UnknownLocation = "Unknown Location"

	DefaultLabelMaxLen       = 40
	DefaultLabelPlacesMaxLen = 25
)

// LabelFormatter renders destination labels for fixed-width cards.
// Formatting never touches the deal's selections.
type LabelFormatter struct {
	MaxLen       int // whole label; longer labels summarize extra destinations as "+N"
	PlacesMaxLen int // one destination's place list; longer lists end in "..."
}

func NewLabelFormatter(maxLen, placesMaxLen int) LabelFormatter {
	if maxLen <= 0 {
		maxLen = DefaultLabelMaxLen
	}
	if placesMaxLen <= 0 {
		placesMaxLen = DefaultLabelPlacesMaxLen
	}
	return LabelFormatter{MaxLen: maxLen, PlacesMaxLen: placesMaxLen}
}

// FormatLabel renders the full label, e.g. "Paris (Louvre, Marais), Rome".
func FormatLabel(primary *Destination, additional []Destination, selected []SelectedPlace) string {
	return LabelFormatter{}.Format(primary, additional, selected)
}

func (f LabelFormatter) Format(primary *Destination, additional []Destination, selected []SelectedPlace) string {
	byDest := make(map[string][]string)
	for _, sp := range selected {
		byDest[sp.DestinationID] = append(byDest[sp.DestinationID], sp.PlaceID)
	}

	head := ""
	if primary != nil {
		head = f.part(*primary, byDest[primary.ID])
	}
	var extras []string
	for _, d := range additional {
		if s := f.part(d, byDest[d.ID]); s != "" {
			extras = append(extras, s)
		}
	}

	full := joinNonEmpty(head, strings.Join(extras, ", "))
	if full == "" {
		return UnknownLocation
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(full) > f.MaxLen && len(extras) > 1 {
		return joinNonEmpty(head, extras[0]) + " +" + strconv.Itoa(len(extras)-1)
	}
	return full
}

func (f LabelFormatter) part(d Destination, placeIDs []string) string {
	names := make([]string, 0, len(placeIDs))
	for _, id := range placeIDs {
		if n, ok := d.PlaceName(id); ok && n != "" {
			names = append(names, n)
		}
	}
	list := strings.Join(names, ", ")
	if f.PlacesMaxLen > 0 {
		list = TruncatePlaces(list, f.PlacesMaxLen)
	}
	name := strings.TrimSpace(d.Name)
	switch {
	case name != "" && list != "":
		return name + " (" + list + ")"
	case name != "":
		return name
	default:
		return list
	}
}

// TruncatePlaces cuts s to max runes and appends "..." when it is longer.
func TruncatePlaces(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:max]), " ,") + "..."
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
