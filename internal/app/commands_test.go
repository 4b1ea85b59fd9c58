package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacation_deals/internal/app"
	"vacation_deals/internal/domain"
)

type editorFixture struct {
	api   *fakeAPI
	snaps *fakeSnaps
	cache *fakeCache
	svc   *app.EditorService
}

func newEditor() editorFixture {
	api := newFakeAPI()
	api.names = map[string]string{"par": "Paris", "rom": "Rome", "h1": "Hotel One"}
	snaps := newFakeSnaps()
	cache := &fakeCache{}
	dir := app.NewDirectoryService(&fakeDirectory{destinations: []map[string]any{
		{"_id": "par", "name": "Paris", "places": []any{map[string]any{"_id": "louvre", "name": "Louvre"}}},
		{"_id": "rom", "name": "Rome"},
	}}, cache, time.Minute)
	proj := app.NewProjector(dir, domain.NewLabelFormatter(0, 0))
	return editorFixture{api: api, snaps: snaps, cache: cache, svc: app.NewEditorService(api, snaps, cache, proj)}
}

func TestEditor_SaveCreatesAndProjects(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	d := validDeal(t)
	require.NoError(t, d.AddMulticenterDestination(domain.Unresolved("rom")))
	require.NoError(t, d.TogglePlace("par", domain.Unresolved("louvre")))

	require.NoError(t, f.svc.Save(ctx, d))

	assert.Equal(t, "deal-1", d.ID)
	require.Len(t, d.PriceEntries, 1)
	assert.True(t, d.PriceEntries[0].Saved)
	assert.Equal(t, domain.EntrySaved, d.PriceEntries[0].State())
	assert.Equal(t, "deal-1", d.PriceEntries[0].DealID)
	// populated on the way back
	name, ok := d.PrimaryDestination.DisplayName()
	assert.True(t, ok)
	assert.Equal(t, "Paris", name)

	snap, ok := f.snaps.items["deal-1"]
	require.True(t, ok)
	assert.Equal(t, "Paris (Louvre), Rome", snap.Label)
	require.NotNil(t, snap.LeadPrice)
	assert.Equal(t, 299.0, *snap.LeadPrice)
	assert.Contains(t, f.cache.dels, "deal:view:deal-1")
}

func TestEditor_SaveUpdatesExisting(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	d := validDeal(t)
	require.NoError(t, f.svc.Save(ctx, d))
	firstPriceID := d.PriceEntries[0].ID

	d.Title = "Paris long weekend"
	require.NoError(t, f.svc.Save(ctx, d))

	assert.Equal(t, "deal-1", d.ID)
	assert.Equal(t, "Paris long weekend", f.api.deals["deal-1"].Title)
	assert.Equal(t, firstPriceID, d.PriceEntries[0].ID, "stored ids are sent back")
}

func TestEditor_SaveValidationBlocks(t *testing.T) {
	f := newEditor()
	d := validDeal(t)
	d.AddEntry()

	err := f.svc.Save(context.Background(), d)
	require.ErrorIs(t, err, app.ErrValidation)
	assert.Empty(t, f.api.deals)
}

func TestEditor_SaveFailureKeepsLocalState(t *testing.T) {
	f := newEditor()
	f.api.failErr = errors.New("")
	d := validDeal(t)
	before := *d

	err := f.svc.Save(context.Background(), d)

	var ext *app.ExternalError
	require.True(t, errors.As(err, &ext))
	assert.Contains(t, ext.Detail(), "please try again")
	assert.Equal(t, before.PriceEntries, d.PriceEntries)
	assert.True(t, d.IsNew())
	assert.Empty(t, f.snaps.items)
}

func TestEditor_ExternalErrorVerbatim(t *testing.T) {
	f := newEditor()
	f.api.failErr = errors.New("duplicate title")
	err := f.svc.Save(context.Background(), validDeal(t))
	require.Error(t, err)
	assert.Equal(t, "save deal: duplicate title", err.Error())
}

func TestEditor_RemovePrice(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	d := validDeal(t)
	require.NoError(t, f.svc.Save(ctx, d))
	stored := d.PriceEntries[0].ID

	d.AddEntry() // draft, never stored
	require.NoError(t, f.svc.RemovePrice(ctx, d, 1))
	assert.Empty(t, f.api.deletedPrices)

	require.NoError(t, f.svc.RemovePrice(ctx, d, 0))
	assert.Equal(t, []string{"deal-1/" + stored}, f.api.deletedPrices)
	assert.Empty(t, d.PriceEntries)

	err := f.svc.RemovePrice(ctx, d, 0)
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestEditor_SetPriceDisabled(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	d := validDeal(t)
	require.NoError(t, f.svc.Save(ctx, d))

	require.NoError(t, f.svc.SetPriceDisabled(ctx, d, 0, true))

	assert.True(t, f.api.deals["deal-1"].Prices[0].PriceSwitch)
	assert.Equal(t, domain.EntryDisabled, d.PriceEntries[0].State())
	assert.Nil(t, f.snaps.items["deal-1"].LeadPrice, "no enabled price left")
}

func TestEditor_PriceChangesReachCachedLists(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	store := app.NewStorefrontService(f.snaps, f.cache, time.Minute, nil)
	d := validDeal(t)
	require.NoError(t, f.svc.Save(ctx, d))

	small := domain.SnapshotQuery{Limit: 10}
	capped := domain.SnapshotQuery{Limit: 20, MaxPrice: ptr(500.0)}
	for _, q := range []domain.SnapshotQuery{small, capped} {
		out, err := store.ListDeals(ctx, q)
		require.NoError(t, err)
		require.Len(t, out.Items, 1)
		assert.Equal(t, "from 299.00", out.Items[0].Display)
	}

	require.NoError(t, f.svc.SetPriceDisabled(ctx, d, 0, true))

	out, err := store.ListDeals(ctx, small)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "N/A", out.Items[0].Display)
	assert.Nil(t, out.Items[0].LeadPrice)

	out, err = store.ListDeals(ctx, capped)
	require.NoError(t, err)
	assert.Empty(t, out.Items, "a deal without an enabled price has no lead price to cap")

	// re-enabling and removing the price move the lists on as well
	require.NoError(t, f.svc.SetPriceDisabled(ctx, d, 0, false))
	out, _ = store.ListDeals(ctx, capped)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "from 299.00", out.Items[0].Display)

	require.NoError(t, f.svc.RemovePrice(ctx, d, 0))
	require.NoError(t, f.svc.Save(ctx, d))
	out, _ = store.ListDeals(ctx, small)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "N/A", out.Items[0].Display)
}

func TestEditor_LoadAndDelete(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	d := validDeal(t)
	require.NoError(t, f.svc.Save(ctx, d))

	got, err := f.svc.Load(ctx, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, d.CombinedSelectedPlaces(), got.CombinedSelectedPlaces())
	assert.Equal(t, "h1", got.PriceEntries[0].HotelID.ID())

	require.NoError(t, f.svc.Delete(ctx, "deal-1"))
	assert.Empty(t, f.snaps.items)

	_, err = f.svc.Load(ctx, "deal-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, "deal-1"), domain.ErrNotFound)
}

func TestEditor_DestinationAndPlaceEdits(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, validDeal(t)))

	d, err := f.svc.AddDestination(ctx, "deal-1", domain.Unresolved("rom"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rom"}, domain.RefIDs(d.AdditionalDestinations))
	assert.Equal(t, []string{"rom"}, f.api.deals["deal-1"].Destinations)

	_, err = f.svc.AddDestination(ctx, "deal-1", domain.Unresolved("par"))
	require.ErrorIs(t, err, domain.ErrInvalidDestination)

	// no ids given: every directory place of the destination
	d, err = f.svc.SelectAllPlaces(ctx, "deal-1", "par", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.SelectedPlace{{PlaceID: "louvre", DestinationID: "par"}}, d.CombinedSelectedPlaces())

	_, err = f.svc.TogglePlace(ctx, "deal-1", "rom", domain.Unresolved("trevi"))
	require.NoError(t, err)
	_, err = f.svc.TogglePlace(ctx, "deal-1", "nice", domain.Unresolved("promenade"))
	require.ErrorIs(t, err, domain.ErrUnknownDestination)
	assert.Len(t, f.api.deals["deal-1"].SelectedPlaces, 2)
	assert.Equal(t, "Paris (Louvre), Rome", f.snaps.items["deal-1"].Label)

	d, err = f.svc.ClearPlaces(ctx, "deal-1", "par")
	require.NoError(t, err)
	assert.Equal(t, []domain.SelectedPlace{{PlaceID: "trevi", DestinationID: "rom"}}, d.CombinedSelectedPlaces())
	_, err = f.svc.ClearPlaces(ctx, "deal-1", "nice")
	require.ErrorIs(t, err, domain.ErrUnknownDestination)

	d, err = f.svc.RemoveDestination(ctx, "deal-1", "par")
	require.NoError(t, err)
	assert.Equal(t, "par", d.PrimaryDestination.ID())
	assert.Len(t, d.SelectedPlaces, 1)

	d, err = f.svc.RemoveDestination(ctx, "deal-1", "rom")
	require.NoError(t, err)
	assert.Empty(t, d.AdditionalDestinations)
	assert.Empty(t, f.api.deals["deal-1"].SelectedPlaces)

	d, err = f.svc.AssignPrimary(ctx, "deal-1", domain.Unresolved("rom"))
	require.NoError(t, err)
	assert.Equal(t, "rom", f.api.deals["deal-1"].Destination)
	assert.Equal(t, "rom", d.PrimaryDestination.ID())

	_, err = f.svc.AssignPrimary(ctx, "deal-404", domain.Unresolved("rom"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditor_AddAndUpdatePrice(t *testing.T) {
	f := newEditor()
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, validDeal(t)))

	d, err := f.svc.AddPrice(ctx, "deal-1", domain.PriceEntryPatch{
		Country:   ptr(domain.CountryIreland),
		HotelID:   ptr(domain.Unresolved("h1")),
		StartDate: ptr(mustDate("2025-06-01")),
		EndDate:   ptr(mustDate("2025-06-08")),
		Price:     ptr(199.0),
	})
	require.NoError(t, err)
	require.Len(t, d.PriceEntries, 2)
	assert.True(t, d.PriceEntries[1].Saved)
	assert.Equal(t, 199.0, *f.snaps.items["deal-1"].LeadPrice)

	_, err = f.svc.UpdatePrice(ctx, "deal-1", 0, domain.PriceEntryPatch{Price: ptr(149.0)})
	require.NoError(t, err)
	assert.Equal(t, 149.0, *f.snaps.items["deal-1"].LeadPrice)

	_, err = f.svc.UpdatePrice(ctx, "deal-1", 5, domain.PriceEntryPatch{Price: ptr(1.0)})
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	_, err = f.svc.AddPrice(ctx, "deal-1", domain.PriceEntryPatch{
		StartDate: ptr(mustDate("2025-06-08")),
		EndDate:   ptr(mustDate("2025-06-01")),
	})
	require.ErrorIs(t, err, domain.ErrInvalidRange)

	// a draft missing its required fields never reaches the API
	_, err = f.svc.AddPrice(ctx, "deal-1", domain.PriceEntryPatch{Price: ptr(99.0)})
	require.ErrorIs(t, err, app.ErrValidation)
	assert.Len(t, f.api.deals["deal-1"].Prices, 2)
}
