package marketplace

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/xid"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/logging"
)

// sensitiveParams are query parameters never written to logs
var sensitiveParams = []string{"api_key"} //nolint:gochecknoglobals

// LoggingRoundTripper implements http.RoundTripper and logs every outbound
// request with a request id, status and duration
type LoggingRoundTripper struct {
	next http.RoundTripper
	log  *slog.Logger
}

// NewLoggingRoundTripper returns a new logging RoundTripper instance
func NewLoggingRoundTripper(next http.RoundTripper, log *slog.Logger) LoggingRoundTripper {
	return LoggingRoundTripper{
		next: next,
		log:  logging.OrDefault(log),
	}
}

// RoundTrip implements http.RoundTripper interface
func (rt LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	requestID := xid.New().String()
	maskedURL := MaskURL(req.URL)

	rt.log.DebugContext(ctx, "outbound request",
		slog.String(logging.FieldRequestID, requestID),
		slog.String(logging.FieldMethod, req.Method),
		slog.String(logging.FieldURL, maskedURL),
	)

	start := time.Now()

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		rt.log.DebugContext(ctx, "outbound request failed",
			slog.String(logging.FieldRequestID, requestID),
			slog.String(logging.FieldURL, maskedURL),
			slog.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
			logging.Err(err),
		)
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	rt.log.DebugContext(ctx, "outbound response",
		slog.String(logging.FieldRequestID, requestID),
		slog.Int(logging.FieldStatus, resp.StatusCode),
		slog.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
	)

	return resp, nil
}

// MaskURL renders u with sensitive query parameters replaced
func MaskURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	masked := *u
	q := masked.Query()
	changed := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, "[MASKED]")
			changed = true
		}
	}
	if changed {
		masked.RawQuery = q.Encode()
	}
	return masked.String()
}
