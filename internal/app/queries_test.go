package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacation_deals/internal/app"
	"vacation_deals/internal/domain"
)

func TestGetDeal_CacheMissThenHit(t *testing.T) {
	snaps := newFakeSnaps()
	price, start := 499.0, mustDate("2025-07-01")
	snaps.items["d1"] = domain.DealSnapshot{
		DealID: "d1", Title: "Rome", Label: "Rome", CardLabel: "Rome",
		LeadEntryID: ptr("p1"), LeadPrice: &price, LeadStart: &start, LeadAirportID: ptr("lgw"),
		CalendarJSON: []byte(`{"01/07/2025_p1":{"value":499,"disabled":false,"entryId":"p1"}}`),
	}
	cache := &fakeCache{}
	q := app.NewStorefrontService(snaps, cache, 10*time.Minute, nil)

	// Miss (first time, populates cache)
	v, err := q.GetDeal(context.Background(), "d1")
	require.NoError(t, err)
	require.NotNil(t, v.LeadPrice)
	assert.Equal(t, "01/07/2025", v.LeadPrice.FormattedStartDate)
	assert.Equal(t, "lgw", v.LeadPrice.AirportID)
	assert.Equal(t, "from 499.00", v.Display)
	assert.Equal(t, domain.CalendarCell{Value: 499, EntryID: "p1"}, v.Calendar["01/07/2025_p1"])

	// Mutate repo to ensure second read indeed comes from cache
	snaps.items["d1"] = domain.DealSnapshot{DealID: "d1", Title: "SHOULD NOT SEE THIS"}

	v2, err := q.GetDeal(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Rome", v2.Title)
	assert.Equal(t, 1, snaps.gets)
}

func TestGetDeal_NoEligiblePrice(t *testing.T) {
	snaps := newFakeSnaps()
	snaps.items["d1"] = domain.DealSnapshot{DealID: "d1", Title: "Hidden"}
	q := app.NewStorefrontService(snaps, &fakeCache{}, time.Minute, nil)

	v, err := q.GetDeal(context.Background(), "d1")
	require.NoError(t, err)
	assert.Nil(t, v.LeadPrice)
	assert.Equal(t, "N/A", v.Display)

	cal, err := q.Calendar(context.Background(), "d1")
	require.NoError(t, err)
	assert.Empty(t, cal)
}

func TestGetDeal_NotFoundAndOnDemandSync(t *testing.T) {
	ctx := context.Background()
	snaps := newFakeSnaps()
	q := app.NewStorefrontService(snaps, &fakeCache{}, time.Minute, nil)
	_, err := q.GetDeal(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	api := newFakeAPI()
	_, err = api.CreateDeal(ctx, domain.ToPayload(validDeal(t)))
	require.NoError(t, err)
	sync := app.NewSyncService(api, snaps, &fakeCache{}, app.NewProjector(nil, domain.LabelFormatter{}))
	q = app.NewStorefrontService(snaps, &fakeCache{}, time.Minute, sync)

	v, err := q.GetDeal(ctx, "deal-1")
	require.NoError(t, err)
	require.NotNil(t, v.LeadPrice)
	assert.Equal(t, 299.0, v.LeadPrice.Price)
	assert.Len(t, v.Calendar, 1)

	// unknown upstream as well
	_, err = q.GetDeal(ctx, "deal-404")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDeals_Cache(t *testing.T) {
	snaps := newFakeSnaps()
	snaps.items["a"] = domain.DealSnapshot{DealID: "a", Title: "A"}
	cache := &fakeCache{}
	q := app.NewStorefrontService(snaps, cache, time.Minute, nil)

	out, err := q.ListDeals(context.Background(), domain.SnapshotQuery{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Nil(t, out.Items[0].Calendar)

	snaps.items["b"] = domain.DealSnapshot{DealID: "b"}
	out2, _ := q.ListDeals(context.Background(), domain.SnapshotQuery{})
	assert.Len(t, out2.Items, 1)
}

func TestDirectory_Cached(t *testing.T) {
	dir := &fakeDirectory{destinations: []map[string]any{{"_id": "par", "name": "Paris"}}}
	svc := app.NewDirectoryService(dir, &fakeCache{}, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		idx, err := svc.DestinationIndex(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Paris", idx["par"].Name)
	}
	hotels, err := svc.Hotels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Hotel{{ID: "h1", Name: "Hotel One"}}, hotels)
	airports, err := svc.Airports(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LGW", airports[0].Code)
	assert.Equal(t, 3, dir.calls)

	dir.err = errBoom
	_, err = app.NewDirectoryService(dir, nil, 0).Destinations(ctx)
	var ext *app.ExternalError
	require.ErrorAs(t, err, &ext)
}
