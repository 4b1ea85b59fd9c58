package app

import (
	"context"
	"time"

	"vacation_deals/internal/domain"
)

// DirectoryService serves the read-only destination/hotel/airport lists
// through the cache.
type DirectoryService struct {
	dir      domain.Directory
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewDirectoryService(d domain.Directory, c domain.Cache, ttl time.Duration) *DirectoryService {
	return &DirectoryService{dir: d, cache: c, cacheTTL: ttl}
}

func (s *DirectoryService) Destinations(ctx context.Context) ([]domain.Destination, error) {
	var out []domain.Destination
	if s.cacheGet(ctx, destinationsKey, &out) {
		return out, nil
	}
	docs, err := s.dir.ListDestinations(ctx)
	if err != nil {
		return nil, external("list destinations", err)
	}
	out = MapDestinations(docs)
	s.cacheSet(ctx, destinationsKey, out)
	return out, nil
}

// DestinationIndex keys Destinations by id.
func (s *DirectoryService) DestinationIndex(ctx context.Context) (map[string]domain.Destination, error) {
	list, err := s.Destinations(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]domain.Destination, len(list))
	for _, d := range list {
		idx[d.ID] = d
	}
	return idx, nil
}

func (s *DirectoryService) Hotels(ctx context.Context) ([]domain.Hotel, error) {
	var out []domain.Hotel
	if s.cacheGet(ctx, hotelsKey, &out) {
		return out, nil
	}
	docs, err := s.dir.ListHotels(ctx)
	if err != nil {
		return nil, external("list hotels", err)
	}
	out = MapHotels(docs)
	s.cacheSet(ctx, hotelsKey, out)
	return out, nil
}

func (s *DirectoryService) Airports(ctx context.Context) ([]domain.Airport, error) {
	var out []domain.Airport
	if s.cacheGet(ctx, airportsKey, &out) {
		return out, nil
	}
	docs, err := s.dir.ListAirports(ctx)
	if err != nil {
		return nil, external("list airports", err)
	}
	out = MapAirports(docs)
	s.cacheSet(ctx, airportsKey, out)
	return out, nil
}

func (s *DirectoryService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, _ := s.cache.Get(ctx, key, dst)
	return ok
}

func (s *DirectoryService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
}
