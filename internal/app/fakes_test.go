package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"vacation_deals/internal/domain"
)

// ---- fakes ----

// fakeAPI behaves like the deals API: it stores bare payloads and answers
// with documents whose references are populated.
type fakeAPI struct {
	deals   map[string]domain.DealPayload
	names   map[string]string // id -> display name used for population
	nextID  int
	failErr error

	deletedPrices []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{deals: map[string]domain.DealPayload{}, names: map[string]string{}}
}

func (f *fakeAPI) populate(id string) any {
	if n, ok := f.names[id]; ok {
		return map[string]any{"_id": id, "name": n}
	}
	return id
}

func (f *fakeAPI) record(p domain.DealPayload) map[string]any {
	dests := make([]any, 0, len(p.Destinations))
	for _, id := range p.Destinations {
		dests = append(dests, f.populate(id))
	}
	places := make([]any, 0, len(p.SelectedPlaces))
	for _, sp := range p.SelectedPlaces {
		places = append(places, map[string]any{"placeId": f.populate(sp.PlaceID), "destinationId": f.populate(sp.DestinationID)})
	}
	prices := make([]any, 0, len(p.Prices))
	for _, pp := range p.Prices {
		airports := make([]any, 0, len(pp.Airport))
		for _, a := range pp.Airport {
			airports = append(airports, f.populate(a))
		}
		prices = append(prices, map[string]any{
			"_id":         pp.ID,
			"country":     pp.Country,
			"airport":     airports,
			"hotel":       f.populate(pp.Hotel),
			"startdate":   pp.StartDate + "T00:00:00.000Z",
			"enddate":     pp.EndDate + "T00:00:00.000Z",
			"price":       pp.Price,
			"priceswitch": pp.PriceSwitch,
		})
	}
	return map[string]any{
		"_id":            p.ID,
		"title":          p.Title,
		"destination":    f.populate(p.Destination),
		"destinations":   dests,
		"selectedPlaces": places,
		"prices":         prices,
	}
}

func (f *fakeAPI) store(p domain.DealPayload) map[string]any {
	for i := range p.Prices {
		if p.Prices[i].ID == "" {
			f.nextID++
			p.Prices[i].ID = fmt.Sprintf("price-%d", f.nextID)
		}
	}
	f.deals[p.ID] = p
	return f.record(p)
}

func (f *fakeAPI) GetDeal(ctx context.Context, id string) (map[string]any, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	p, ok := f.deals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.record(p), nil
}

func (f *fakeAPI) ListDeals(ctx context.Context) ([]map[string]any, error) {
	ids := make([]string, 0, len(f.deals))
	for id := range f.deals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.record(f.deals[id]))
	}
	return out, nil
}

func (f *fakeAPI) CreateDeal(ctx context.Context, p domain.DealPayload) (map[string]any, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.nextID++
	p.ID = fmt.Sprintf("deal-%d", f.nextID)
	return f.store(p), nil
}

func (f *fakeAPI) UpdateDeal(ctx context.Context, id string, p domain.DealPayload) (map[string]any, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	if _, ok := f.deals[id]; !ok {
		return nil, domain.ErrNotFound
	}
	p.ID = id
	return f.store(p), nil
}

func (f *fakeAPI) DeleteDeal(ctx context.Context, id string) error {
	if f.failErr != nil {
		return f.failErr
	}
	if _, ok := f.deals[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.deals, id)
	return nil
}

func (f *fakeAPI) DeletePrice(ctx context.Context, dealID, priceID string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.deletedPrices = append(f.deletedPrices, dealID+"/"+priceID)
	return nil
}

type fakeSnaps struct {
	items  map[string]domain.DealSnapshot
	misses []string
	gets   int
}

func newFakeSnaps() *fakeSnaps { return &fakeSnaps{items: map[string]domain.DealSnapshot{}} }

func (f *fakeSnaps) UpsertSnapshot(ctx context.Context, s domain.DealSnapshot) error {
	f.items[s.DealID] = s
	return nil
}
func (f *fakeSnaps) DeleteSnapshot(ctx context.Context, id string) error {
	delete(f.items, id)
	return nil
}
func (f *fakeSnaps) LogMiss(ctx context.Context, id string, status int, reason string) error {
	f.misses = append(f.misses, fmt.Sprintf("%s:%d:%s", id, status, reason))
	return nil
}
func (f *fakeSnaps) GetSnapshot(ctx context.Context, id string) (domain.DealSnapshot, error) {
	f.gets++
	s, ok := f.items[id]
	if !ok {
		return domain.DealSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}
func (f *fakeSnaps) ListSnapshots(ctx context.Context, q domain.SnapshotQuery) (domain.SnapshotPage, error) {
	var out []domain.DealSnapshot
	for _, s := range f.items {
		if q.MaxPrice != nil && (s.LeadPrice == nil || *s.LeadPrice > *q.MaxPrice) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DealID < out[j].DealID })
	return domain.SnapshotPage{Items: out}, nil
}

// fakeCache stores JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

type fakeDirectory struct {
	destinations []map[string]any
	calls        int
	err          error
}

func (f *fakeDirectory) ListDestinations(ctx context.Context) ([]map[string]any, error) {
	f.calls++
	return f.destinations, f.err
}
func (f *fakeDirectory) ListHotels(ctx context.Context) ([]map[string]any, error) {
	f.calls++
	return []map[string]any{{"_id": "h1", "name": "Hotel One"}}, f.err
}
func (f *fakeDirectory) ListAirports(ctx context.Context) ([]map[string]any, error) {
	f.calls++
	return []map[string]any{{"_id": "lgw", "name": "Gatwick", "code": "lgw"}}, f.err
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}
