package service

import (
	"context"
	"sync"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService loads the read-only service catalog, cheapest first, with
// a short in-memory cache so the wizard's mount does not hit the store on
// every open.
type CatalogService struct {
	store  domain.Store
	ttl    time.Duration
	logger *zerolog.Logger

	mu        sync.Mutex
	cached    []models.Service
	fetchedAt time.Time
}

func NewCatalogService(store domain.Store, ttl time.Duration, logger *zerolog.Logger) *CatalogService {
	if ttl <= 0 {
		ttl = models.CatalogCacheTTL * time.Second
	}
	return &CatalogService{store: store, ttl: ttl, logger: logger}
}

// GetServices returns the catalog ordered by base price ascending.
func (s *CatalogService) GetServices(ctx context.Context) ([]models.Service, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		out := append([]models.Service(nil), s.cached...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	var services []models.Service
	order := &domain.Order{Column: "base_price"}
	if err := s.store.Select(ctx, models.TableServices, nil, order, &services); err != nil {
		s.logger.Error().Err(err).Msg("failed to load service catalog")
		return nil, err
	}

	s.mu.Lock()
	s.cached = services
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return append([]models.Service(nil), services...), nil
}

// GetService resolves one catalog entry by id.
func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	services, err := s.GetServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].ID == id {
			return &services[i], nil
		}
	}
	return nil, ErrUnknownService
}

// Invalidate drops the cache; the next read reloads from the store.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
