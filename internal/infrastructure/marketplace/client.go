package marketplace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/time/rate"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/logging"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/metrics"
)

const (
	DefaultSearchURL     = "https://www.amazon.in/s"
	DefaultProxyEndpoint = "http://api.scraperapi.com"
	DefaultTimeout       = 30 * time.Second

	maxBodyBytes = 8 << 20
)

// botChallengeMarkers identify captcha and robot check pages
var botChallengeMarkers = [][]byte{
	[]byte("validatecaptcha"),
	[]byte("captchacharacters"),
	[]byte("enter the characters you see"),
	[]byte("type the characters you see"),
}

// Options configures a Client
type Options struct {
	Mode          string
	SearchURL     string
	Timeout       time.Duration
	ProxyEndpoint string
	ProxyAPIKey   string
	Identities    *IdentityPool

	// RequestsPerMinute paces outbound fetches locally; 0 disables pacing
	RequestsPerMinute int
	Burst             int

	Transport http.RoundTripper
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Client fetches marketplace search result pages, either directly or
// through a fetch proxy
type Client struct {
	httpClient  *http.Client
	searchURL   string
	strategy    requestStrategy
	rateLimiter *rate.Limiter
	log         *slog.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a new search page client
func NewClient(opts Options) (*Client, error) {
	log := logging.OrDefault(opts.Logger)

	var strategy requestStrategy
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case ModeDirect:
		pool := opts.Identities
		if pool == nil {
			pool = NewIdentityPool(nil, nil)
		}
		strategy = directStrategy{identities: pool}
	case ModeProxy:
		endpoint := strings.TrimSpace(opts.ProxyEndpoint)
		if endpoint == "" {
			endpoint = DefaultProxyEndpoint
		}
		strategy = proxyStrategy{endpoint: endpoint, apiKey: opts.ProxyAPIKey}
	default:
		return nil, fmt.Errorf("unknown fetch mode %q (want %q or %q)", opts.Mode, ModeDirect, ModeProxy)
	}

	searchURL := strings.TrimSpace(opts.SearchURL)
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if _, err := url.Parse(searchURL); err != nil {
		return nil, fmt.Errorf("invalid search URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), burst)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: NewLoggingRoundTripper(transport, log),
		},
		searchURL:   searchURL,
		strategy:    strategy,
		rateLimiter: limiter,
		log:         log,
		metrics:     opts.Metrics,
	}, nil
}

// Mode returns the configured fetch mode
func (c *Client) Mode() string {
	return c.strategy.mode()
}

// Fetch retrieves the search results markup for query. Every failure is
// terminal for the call; the caller decides whether to try again.
func (c *Client) Fetch(ctx context.Context, query string) (string, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return "", domain.ErrInvalidQuery
	}

	req, err := c.strategy.newRequest(ctx, BuildSearchURL(c.searchURL, query))
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.metrics.ObserveFetch(c.Mode(), "config", 0)
			return "", cfgErr
		}
		return "", &domain.TransportError{Detail: "invalid request", Err: err}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", &domain.TransportError{Detail: "rate limiter wait", Err: pacingError(ctx, err)}
	}

	start := time.Now()
	body, err := c.doRequest(req)
	c.metrics.ObserveFetch(c.Mode(), fetchResult(err), time.Since(start))
	if err != nil {
		c.log.WarnContext(ctx, "search fetch failed",
			slog.String(logging.FieldQuery, query),
			slog.String("mode", c.Mode()),
			logging.Err(err),
		)
		return "", err
	}

	c.log.DebugContext(ctx, "search page fetched",
		slog.String(logging.FieldQuery, query),
		slog.String("mode", c.Mode()),
		slog.Int("bytes", len(body)),
		slog.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
	)

	return string(body), nil
}

// doRequest executes the request and returns the decoded body of a 2xx answer
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the full request URL, proxy key included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = MaskURL(req.URL)
		}

		detail := "request failed"
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			detail = "request timed out"
		}
		return nil, &domain.TransportError{Detail: detail, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, &domain.TransportError{Detail: "failed to read response body", Err: err}
	}

	if isBotChallenge(body) {
		return nil, &domain.TransportError{Detail: "bot challenge page", Err: domain.ErrBotChallenge}
	}

	return body, nil
}

// readBody reads at most maxBodyBytes, decoding gzip or deflate bodies the
// transport left encoded because the identity set its own Accept-Encoding
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return io.ReadAll(io.LimitReader(r, maxBodyBytes))
}

// pacingError reports a wait the context deadline cannot cover as
// context.DeadlineExceeded; the limiter returns its own error for it.
func pacingError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func isBotChallenge(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, marker := range botChallengeMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func fetchResult(err error) string {
	var statusErr *domain.HTTPStatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrBotChallenge):
		return "bot_challenge"
	case errors.As(err, &statusErr):
		return "http_status"
	default:
		return "transport"
	}
}

// NormalizeQuery trims the query and collapses runs of whitespace
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// BuildSearchURL appends the form-encoded query to the search URL; spaces
// become "+"
func BuildSearchURL(searchURL, query string) string {
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}
	return searchURL + sep + "k=" + url.QueryEscape(query)
}
