package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
)

// Fetch modes
const (
	ModeDirect = "direct"
	ModeProxy  = "proxy"
)

// requestStrategy turns a marketplace search URL into the outbound request
type requestStrategy interface {
	mode() string
	newRequest(ctx context.Context, targetURL string) (*http.Request, error)
}

// directStrategy requests the marketplace itself with a pooled identity
type directStrategy struct {
	identities *IdentityPool
}

func (s directStrategy) mode() string { return ModeDirect }

func (s directStrategy) newRequest(ctx context.Context, targetURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.identities.Pick().apply(req.Header)
	return req, nil
}

// proxyStrategy hands the marketplace URL to a fetch proxy that performs the retrieval
type proxyStrategy struct {
	endpoint string
	apiKey   string
}

func (s proxyStrategy) mode() string { return ModeProxy }

func (s proxyStrategy) newRequest(ctx context.Context, targetURL string) (*http.Request, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, &domain.ConfigurationError{Setting: "proxy.api_key"}
	}

	endpoint, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy endpoint: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("url", targetURL)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "cartlink/1.0")
	return req, nil
}
