package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/logging"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// DefaultResolutionCacheTTL is how long a resolved identifier is reused
const DefaultResolutionCacheTTL = 6 * time.Hour

// ResolutionServiceConfig holds configuration for the resolution service
type ResolutionServiceConfig struct {
	CacheTTL time.Duration
}

// ResolutionService resolves product queries to marketplace listings with caching
type ResolutionService struct {
	cache     domain.CacheRepository
	fetcher   domain.SearchFetcher
	extractor domain.CandidateExtractor
	cacheTTL  time.Duration
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// NewResolutionService creates a new resolution service. cache may be nil to
// disable caching.
func NewResolutionService(
	cache domain.CacheRepository,
	fetcher domain.SearchFetcher,
	extractor domain.CandidateExtractor,
	config ResolutionServiceConfig,
	log *slog.Logger,
	m *metrics.Metrics,
) *ResolutionService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = DefaultResolutionCacheTTL
	}

	return &ResolutionService{
		cache:     cache,
		fetcher:   fetcher,
		extractor: extractor,
		cacheTTL:  cacheTTL,
		log:       logging.OrDefault(log),
		metrics:   m,
	}
}

// ResolveItem resolves query to a single listing.
// Flow: check cache -> fetch search page -> extract candidates -> resolve -> cache
// Fetch and extraction failures come back as an error outcome, never a panic
// or a partial result.
func (s *ResolutionService) ResolveItem(ctx context.Context, query string) domain.ResolutionOutcome {
	outcome := s.resolveItem(ctx, query)
	s.metrics.ObserveResolution(string(outcome.Status))
	return outcome
}

func (s *ResolutionService) resolveItem(ctx context.Context, query string) domain.ResolutionOutcome {
	query = normalizeQuery(query)
	if query == "" {
		return domain.Failed(domain.ErrInvalidQuery)
	}

	key := resolutionCacheKey(query)
	if cached, ok := s.getFromCache(ctx, key); ok {
		s.log.DebugContext(ctx, "resolution served from cache",
			slog.String(logging.FieldQuery, query),
			slog.String("asin", cached.Identifier),
		)
		return cached
	}

	markup, err := s.fetcher.Fetch(ctx, query)
	if err != nil {
		return domain.Failed(err)
	}

	candidates, err := s.extractor.ExtractCandidates(markup)
	if err != nil {
		return domain.Failed(fmt.Errorf("failed to extract candidates: %w", err))
	}

	outcome := Resolve(candidates)

	s.log.InfoContext(ctx, "item resolved",
		slog.String(logging.FieldQuery, query),
		slog.String(logging.FieldStatus, string(outcome.Status)),
		slog.String("asin", outcome.Identifier),
		slog.Int("candidates", len(candidates)),
	)

	// Not-found outcomes are not cached so a restocked item is picked up on the next call
	if outcome.Status.HasIdentifier() {
		s.setInCache(ctx, key, outcome)
	}

	return outcome
}

// getFromCache returns a cached identifier-bearing outcome
func (s *ResolutionService) getFromCache(ctx context.Context, key string) (domain.ResolutionOutcome, bool) {
	if s.cache == nil {
		return domain.ResolutionOutcome{}, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache read failed", slog.String("key", key), logging.Err(err))
		}
		return domain.ResolutionOutcome{}, false
	}

	var outcome domain.ResolutionOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		s.log.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key), logging.Err(err))
		return domain.ResolutionOutcome{}, false
	}
	if !outcome.Status.HasIdentifier() || outcome.Identifier == "" {
		return domain.ResolutionOutcome{}, false
	}

	return outcome, true
}

// setInCache stores outcome; failures are logged and otherwise ignored
func (s *ResolutionService) setInCache(ctx context.Context, key string, outcome domain.ResolutionOutcome) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		s.log.WarnContext(ctx, "failed to encode outcome for cache", slog.String("key", key), logging.Err(err))
		return
	}

	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "cache write failed", slog.String("key", key), logging.Err(err))
	}
}
