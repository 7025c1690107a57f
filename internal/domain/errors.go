package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when the product query is empty
	ErrInvalidQuery = errors.New("invalid query: product query cannot be empty")

	// ErrInvalidCartRequest is returned when a cart request has no items, blank names or non-positive quantities
	ErrInvalidCartRequest = errors.New("invalid cart request")

	// ErrFetchFailed matches every failure of the search page fetch (see HTTPStatusError, TransportError)
	ErrFetchFailed = errors.New("search page fetch failed")

	// ErrBotChallenge is returned when the marketplace answers with a captcha or robot check page
	ErrBotChallenge = errors.New("marketplace returned a bot challenge page")

	// ErrNoResultsFound is returned when the search page had no listings at all
	ErrNoResultsFound = errors.New("no products found on the page")

	// ErrNoInStockResultsFound is returned when every listing was sponsored or unavailable
	ErrNoInStockResultsFound = errors.New("no in-stock, non-sponsored products found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// ConfigurationError reports a required setting that is missing for the call being made.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Setting)
}

// HTTPStatusError is a non-2xx answer from the search surface or the fetch proxy.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("search request failed: status %d", e.Code)
}

// Is lets callers match any fetch failure with errors.Is(err, ErrFetchFailed).
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrFetchFailed
}

// TransportError is a network, timeout or body read failure.
type TransportError struct {
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search request failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("search request failed: %s", e.Detail)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrFetchFailed
}

// ItemResolutionError aborts a cart build. It names the item that could not be
// resolved and carries that item's own outcome.
type ItemResolutionError struct {
	Item    string
	Status  ResolutionStatus
	Message string
	Err     error
}

func (e *ItemResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q (%s): %s", e.Item, e.Status, e.Message)
}

// Unwrap returns the underlying cause, or the sentinel for not-found statuses.
func (e *ItemResolutionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.Status {
	case StatusNoResultsFound:
		return ErrNoResultsFound
	case StatusNoInStockResultsFound:
		return ErrNoInStockResultsFound
	}
	return nil
}
