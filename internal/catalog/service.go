package catalog

import (
	"context"

	"github.com/Simplici0/cotizador/internal/logger"
	"github.com/Simplici0/cotizador/internal/pricing"
)

// Service fronts the catalog store with the tariff cache.
type Service struct {
	store *Store
	cache TariffCache
	log   *logger.Logger
}

func NewService(store *Store, cache TariffCache, log *logger.Logger) *Service {
	if cache == nil {
		cache = NoCache{}
	}
	return &Service{store: store, cache: cache, log: log.With("service", "catalog")}
}

func (s *Service) Store() *Store { return s.store }

// Tariffs returns the tariff table, loading it from the store on a cache miss.
// A failing cache degrades to store reads. The generation is read before the
// store so an UpdateTariffs that lands mid-load leaves the cache empty.
func (s *Service) Tariffs(ctx context.Context) ([]pricing.TariffBand, error) {
	bands, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn("tariff cache read failed", "error", err)
	}
	if ok {
		return bands, nil
	}

	generation, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.Warn("tariff cache generation read failed", "error", genErr)
	}

	bands, err = s.store.TariffBands(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if err := s.cache.Set(ctx, generation, bands); err != nil {
			s.log.Warn("tariff cache write failed", "error", err)
		}
	}
	s.log.Debug("tariff table loaded", "bands", len(bands))
	return bands, nil
}

// UpdateTariffs writes the batch and drops the cached table.
func (s *Service) UpdateTariffs(ctx context.Context, updates []TariffUpdate) error {
	if err := s.store.UpdateTariffs(ctx, updates); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Error("tariff cache invalidation failed", "error", err)
	}
	s.log.Info("tariffs updated", "count", len(updates))
	return nil
}
