package domain

import (
	"context"
	"time"
)

// DealsAPI is the external document API that owns deal persistence.
// Reads return raw documents; references in them may be populated.
type DealsAPI interface {
	GetDeal(ctx context.Context, id string) (map[string]any, error)
	ListDeals(ctx context.Context) ([]map[string]any, error)
	CreateDeal(ctx context.Context, p DealPayload) (map[string]any, error)
	UpdateDeal(ctx context.Context, id string, p DealPayload) (map[string]any, error)
	DeleteDeal(ctx context.Context, id string) error
	DeletePrice(ctx context.Context, dealID, priceID string) error
}

// Directory serves the read-only destination/hotel/airport lists.
type Directory interface {
	ListDestinations(ctx context.Context) ([]map[string]any, error)
	ListHotels(ctx context.Context) ([]map[string]any, error)
	ListAirports(ctx context.Context) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type SnapshotRepository interface {
	// Write paths
	UpsertSnapshot(ctx context.Context, s DealSnapshot) error
	DeleteSnapshot(ctx context.Context, dealID string) error
	LogMiss(ctx context.Context, dealID string, status int, reason string) error

	// Read paths
	GetSnapshot(ctx context.Context, dealID string) (DealSnapshot, error)
	ListSnapshots(ctx context.Context, q SnapshotQuery) (SnapshotPage, error)
}

// DealSnapshot is the storefront projection of a deal.
type DealSnapshot struct {
	DealID        string
	Title         string
	Label         string
	CardLabel     string
	LeadEntryID   *string
	LeadPrice     *float64
	LeadStart     *time.Time
	LeadAirportID *string
	PriceCount    int
	EnabledCount  int
	CalendarJSON  []byte // map[string]CalendarCell
	RawJSON       []byte // deal document as returned by the API
}

type SnapshotQuery struct {
	Limit    int
	MaxPrice *float64
}

type SnapshotPage struct {
	Items []DealSnapshot
}
