package settings

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rezonia/pohoda-xml/internal/config"
)

// DefaultCacheTTL bounds how long validated settings are served from memory
const DefaultCacheTTL = 5 * time.Minute

const settingsCacheKey = "settings"

// Service validates settings and caches the parsed form between transforms
type Service struct {
	store  *Store
	cache  *cache.Cache
	logger *slog.Logger
}

// NewService wraps store with a cache of the given TTL
func NewService(store *Store, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Settings returns the validated transform settings
func (s *Service) Settings(ctx context.Context) (*config.Settings, error) {
	if cached, found := s.cache.Get(settingsCacheKey); found {
		return cached.(*config.Settings), nil
	}

	values, err := s.store.Values(ctx)
	if err != nil {
		return nil, err
	}
	parsed, err := config.FromMap(known(values))
	if err != nil {
		return nil, err
	}

	s.cache.Set(settingsCacheKey, parsed, cache.DefaultExpiration)
	return parsed, nil
}

// List returns the stored settings ordered by category and name
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.store.List(ctx)
}

// Update validates the merged result of the current values and values,
// then stores the changes. Unknown codes are ignored. Nothing is written
// when validation fails.
func (s *Service) Update(ctx context.Context, values map[string]string) ([]string, error) {
	current, err := s.store.Values(ctx)
	if err != nil {
		return nil, err
	}

	changes := known(values)
	merged := known(current)
	for code, v := range changes {
		merged[code] = v
	}
	if _, err := config.FromMap(merged); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, changes)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(settingsCacheKey)

	s.logger.InfoContext(ctx, "settings updated", "codes", updated)
	return updated, nil
}

// known drops codes that are not transform settings
func known(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for code, v := range values {
		if config.IsKey(code) {
			out[code] = v
		}
	}
	return out
}
