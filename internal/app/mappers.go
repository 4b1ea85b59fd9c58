package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vacation_deals/internal/domain"
)

/********** alias registries (single source of truth) **********/

var dealAliases = map[string][]string{
	"id":           {"_id", "id"},
	"title":        {"title", "name"},
	"destination":  {"destination", "primaryDestination", "destinationId"},
	"destinations": {"destinations", "multicenterDestinations", "additionalDestinations"},
	"selected":     {"selectedPlaces", "places"},
	"prices":       {"prices", "priceEntries"},
}

var priceAliases = map[string][]string{
	"id":       {"_id", "id"},
	"country":  {"country"},
	"start":    {"startdate", "startDate", "start_date"},
	"end":      {"enddate", "endDate", "end_date"},
	"airport":  {"airport", "airports", "airportIds"},
	"hotel":    {"hotel", "hotelId"},
	"price":    {"price", "amount"},
	"disabled": {"priceswitch", "disabled"},
	"flights":  {"flightDetails", "flights"},
}

var legAliases = map[string][]string{
	"departure": {"departureTime", "departure_time", "departure"},
	"arrival":   {"arrivalTime", "arrival_time", "arrival"},
	"airline":   {"airline", "carrier"},
	"number":    {"flightNumber", "flight_number", "number"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias: first present (non-nil) value for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) any {
	for _, p := range aliases[key] {
		if v := lookupAny(m, p); v != nil {
			return v
		}
	}
	return nil
}

// aliasStr: string (or number rendered as string) for a named alias set.
func aliasStr(m map[string]any, aliases map[string][]string, key string) string {
	switch v := firstAlias(m, aliases, key).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		// ids sometimes arrive as {"$oid": "..."}
		return domain.RefFrom(map[string]any{"_id": v}).ID()
	}
	return ""
}

// floatFlexible: number from float64/int/string like "499,00".
func floatFlexible(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// boolFlexible: bool from bool / "true" / 1.
func boolFlexible(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	}
	return false
}

func asMaps(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

/********** deal mapper **********/

// MapDeal turns a deal document into the aggregate. It accepts both the
// bare-id payload shape and the populated record the API returns, and
// restores the aggregate invariants on the way in.
func MapDeal(doc map[string]any) domain.Deal {
	d := domain.Deal{
		ID:                     aliasStr(doc, dealAliases, "id"),
		Title:                  aliasStr(doc, dealAliases, "title"),
		PrimaryDestination:     domain.RefFrom(firstAlias(doc, dealAliases, "destination")),
		AdditionalDestinations: domain.RefsFrom(firstAlias(doc, dealAliases, "destinations")),
	}

	for _, sp := range asMaps(firstAlias(doc, dealAliases, "selected")) {
		d.SelectedPlaces = append(d.SelectedPlaces, domain.SelectedPlace{
			PlaceID:       domain.RefFrom(firstNonNil(sp["placeId"], sp["place"])).ID(),
			DestinationID: domain.RefFrom(firstNonNil(sp["destinationId"], sp["destination"])).ID(),
		})
	}

	for _, pm := range asMaps(firstAlias(doc, dealAliases, "prices")) {
		d.PriceEntries = append(d.PriceEntries, mapPrice(d.ID, pm))
	}

	d.Normalize()
	return d
}

func mapPrice(dealID string, m map[string]any) domain.PriceEntry {
	e := domain.PriceEntry{
		ID:         aliasStr(m, priceAliases, "id"),
		DealID:     dealID,
		Country:    domain.Country(aliasStr(m, priceAliases, "country")),
		AirportIDs: domain.RefsFrom(firstAlias(m, priceAliases, "airport")),
		HotelID:    domain.RefFrom(firstAlias(m, priceAliases, "hotel")),
		Disabled:   boolFlexible(firstAlias(m, priceAliases, "disabled")),
	}
	// an id means the API has stored it; otherwise it is still a draft
	if e.ID != "" {
		e.Saved = true
	} else {
		e.ID = uuid.NewString()
	}
	if t, ok := domain.ParseDate(aliasStr(m, priceAliases, "start")); ok {
		e.StartDate = t
	}
	if t, ok := domain.ParseDate(aliasStr(m, priceAliases, "end")); ok {
		e.EndDate = t
	}
	if f, ok := floatFlexible(firstAlias(m, priceAliases, "price")); ok {
		e.Price = f
	} else if v := firstAlias(m, priceAliases, "price"); v != nil {
		log.Warn().Str("context", "mapPrice").Str("price_id", e.ID).
			Interface("price", v).Msg("unparseable price, defaulting to 0")
	}
	if fd, ok := firstAlias(m, priceAliases, "flights").(map[string]any); ok {
		e.FlightDetails = domain.FlightDetails{
			Outbound:     mapLeg(lookupAny(fd, "outbound")),
			ReturnFlight: mapLeg(firstNonNil(lookupAny(fd, "returnFlight"), lookupAny(fd, "return"))),
		}
	}
	return e
}

// MapPricePatch reads the fields present in a price document into a patch.
// Absent fields stay nil; present but unreadable ones are reported.
func MapPricePatch(m map[string]any) (domain.PriceEntryPatch, error) {
	var p domain.PriceEntryPatch
	verr := &ValidationError{}

	if v := firstAlias(m, priceAliases, "country"); v != nil {
		c := domain.Country(aliasStr(m, priceAliases, "country"))
		p.Country = &c
	}
	for key, dst := range map[string]**time.Time{"start": &p.StartDate, "end": &p.EndDate} {
		if firstAlias(m, priceAliases, key) == nil {
			continue
		}
		t, ok := domain.ParseDate(aliasStr(m, priceAliases, key))
		if !ok {
			verr.add(priceAliases[key][0], "must be an ISO date")
			continue
		}
		*dst = &t
	}
	if v := firstAlias(m, priceAliases, "airport"); v != nil {
		refs := domain.RefsFrom(v)
		p.AirportIDs = &refs
	}
	if v := firstAlias(m, priceAliases, "hotel"); v != nil {
		ref := domain.RefFrom(v)
		p.HotelID = &ref
	}
	if v := firstAlias(m, priceAliases, "price"); v != nil {
		f, ok := floatFlexible(v)
		if !ok {
			verr.add("price", "must be a number")
		} else {
			p.Price = &f
		}
	}
	if v := firstAlias(m, priceAliases, "disabled"); v != nil {
		b := boolFlexible(v)
		p.Disabled = &b
	}
	if fd, ok := firstAlias(m, priceAliases, "flights").(map[string]any); ok {
		p.FlightDetails = &domain.FlightDetails{
			Outbound:     mapLeg(lookupAny(fd, "outbound")),
			ReturnFlight: mapLeg(firstNonNil(lookupAny(fd, "returnFlight"), lookupAny(fd, "return"))),
		}
	}

	if len(verr.Fields) > 0 {
		return p, verr
	}
	return p, nil
}

func mapLeg(v any) domain.FlightLeg {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.FlightLeg{}
	}
	return domain.FlightLeg{
		DepartureTime: aliasStr(m, legAliases, "departure"),
		ArrivalTime:   aliasStr(m, legAliases, "arrival"),
		Airline:       aliasStr(m, legAliases, "airline"),
		FlightNumber:  aliasStr(m, legAliases, "number"),
	}
}

func firstNonNil(vs ...any) any {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

/********** directory mappers **********/

func MapDestinations(docs []map[string]any) []domain.Destination {
	out := make([]domain.Destination, 0, len(docs))
	for _, doc := range docs {
		ref := domain.RefFrom(doc)
		if ref.IsZero() {
			log.Warn().Str("context", "MapDestinations").Msg("destination without id skipped")
			continue
		}
		name, _ := ref.DisplayName()
		dest := domain.Destination{ID: ref.ID(), Name: name}
		raw, _ := doc["places"].([]any)
		for _, it := range raw {
			pr := domain.RefFrom(it)
			if pr.IsZero() {
				continue
			}
			pn, _ := pr.DisplayName()
			dest.Places = append(dest.Places, domain.Place{ID: pr.ID(), Name: pn})
		}
		out = append(out, dest)
	}
	return out
}

func MapHotels(docs []map[string]any) []domain.Hotel {
	out := make([]domain.Hotel, 0, len(docs))
	for _, doc := range docs {
		ref := domain.RefFrom(doc)
		if ref.IsZero() {
			continue
		}
		name, _ := ref.DisplayName()
		out = append(out, domain.Hotel{ID: ref.ID(), Name: name})
	}
	return out
}

func MapAirports(docs []map[string]any) []domain.Airport {
	out := make([]domain.Airport, 0, len(docs))
	for _, doc := range docs {
		ref := domain.RefFrom(doc)
		if ref.IsZero() {
			continue
		}
		name, _ := ref.DisplayName()
		code, _ := doc["code"].(string)
		out = append(out, domain.Airport{ID: ref.ID(), Name: name, Code: strings.ToUpper(strings.TrimSpace(code))})
	}
	return out
}
