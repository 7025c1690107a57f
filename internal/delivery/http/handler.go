package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
)

// CartBuilder builds one add-to-cart link for a set of items
type CartBuilder interface {
	BuildCartLink(ctx context.Context, items domain.CartRequest) (domain.CartLink, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver domain.ItemResolver
	carts    CartBuilder
}

// NewHandler creates a new HTTP handler. Either dependency may be nil, in
// which case its endpoint answers 501.
func NewHandler(resolver domain.ItemResolver, carts CartBuilder) *Handler {
	return &Handler{
		resolver: resolver,
		carts:    carts,
	}
}

// errorDetail is the failure body; clients read detail.error
type errorDetail struct {
	Error  string `json:"error"`
	Item   string `json:"item,omitempty"`
	Status string `json:"status,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartlink-backend",
		"version": "1.0.0",
	})
}

// ResolveItem resolves the q query parameter to a single listing.
// Not-found outcomes are answered with 200: the search worked, it found
// nothing usable.
func (h *Handler) ResolveItem(c *gin.Context) {
	if h.resolver == nil {
		abortWithDetail(c, http.StatusNotImplemented, errorDetail{Error: "item resolution is not configured"})
		return
	}

	outcome := h.resolver.ResolveItem(c.Request.Context(), c.Query("q"))
	if outcome.Status == domain.StatusError {
		err := outcome.Err
		if err == nil {
			err = errors.New(outcome.ErrorMessage)
		}
		c.JSON(statusForError(err), outcome)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// Shopping builds a cart link for {"items": {"<name>": <quantity>}}. The
// frontend's {"additionalProp1": {...}} body is accepted as well.
func (h *Handler) Shopping(c *gin.Context) {
	if h.carts == nil {
		abortWithDetail(c, http.StatusNotImplemented, errorDetail{Error: "cart building is not configured"})
		return
	}

	var req domain.ShoppingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusBadRequest, errorDetail{Error: "invalid request body: " + err.Error()})
		return
	}
	items := req.Cart()
	if items == nil {
		abortWithDetail(c, http.StatusBadRequest, errorDetail{Error: `invalid request body: "items" is required`})
		return
	}

	link, err := h.carts.BuildCartLink(c.Request.Context(), items)
	if err != nil {
		detail := errorDetail{Error: err.Error()}
		var itemErr *domain.ItemResolutionError
		if errors.As(err, &itemErr) {
			detail.Item = itemErr.Item
			detail.Status = string(itemErr.Status)
		}
		abortWithDetail(c, statusForError(err), detail)
		return
	}

	c.JSON(http.StatusOK, domain.ShoppingResponse{CartURL: link})
}

// statusForError maps the error taxonomy onto HTTP status codes
func statusForError(err error) int {
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrInvalidCartRequest):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrNoResultsFound), errors.Is(err, domain.ErrNoInStockResultsFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithDetail(c *gin.Context, code int, detail errorDetail) {
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}
