package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchFetcher retrieves the raw search results markup for a product query
type SearchFetcher interface {
	Fetch(ctx context.Context, query string) (string, error)
}

// CandidateExtractor turns search results markup into listings in document order
type CandidateExtractor interface {
	ExtractCandidates(markup string) ([]Candidate, error)
}

// ItemResolver resolves one product query to a single listing
type ItemResolver interface {
	ResolveItem(ctx context.Context, query string) ResolutionOutcome
}
