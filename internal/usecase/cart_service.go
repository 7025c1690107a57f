package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/logging"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/metrics"
)

// DefaultCartDeadline bounds a whole cart build
const DefaultCartDeadline = 2 * time.Minute

// CartServiceConfig holds configuration for the cart service
type CartServiceConfig struct {
	// BaseURL is the add-to-cart URL the item fragments are appended to
	BaseURL string

	// MaxConcurrency is the number of items resolved at once; 1 resolves
	// items one after another
	MaxConcurrency int

	Deadline time.Duration
}

// CartService builds a single add-to-cart link for a set of items
type CartService struct {
	resolver       domain.ItemResolver
	baseURL        string
	maxConcurrency int
	deadline       time.Duration
	validate       *validator.Validate
	log            *slog.Logger
	metrics        *metrics.Metrics
}

type cartLine struct {
	Name     string `validate:"notblank"`
	Quantity int    `validate:"gt=0"`
}

type cartLines struct {
	Lines []cartLine `validate:"required,min=1,dive"`
}

// NewCartService creates a new cart service
func NewCartService(
	resolver domain.ItemResolver,
	config CartServiceConfig,
	log *slog.Logger,
	m *metrics.Metrics,
) *CartService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("notblank", validators.NotBlank)

	maxConcurrency := config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	deadline := config.Deadline
	if deadline <= 0 {
		deadline = DefaultCartDeadline
	}

	return &CartService{
		resolver:       resolver,
		baseURL:        config.BaseURL,
		maxConcurrency: maxConcurrency,
		deadline:       deadline,
		validate:       validate,
		log:            logging.OrDefault(log),
		metrics:        m,
	}
}

// BuildCartLink resolves every item and returns one link adding all of them
// to the cart. Items are processed in name order and <n> in each
// "&ASIN.<n>=<id>&Quantity.<n>=<qty>" fragment is the 1-based position in
// that order. The first item that cannot be resolved aborts the build with
// an *domain.ItemResolutionError and no link.
func (s *CartService) BuildCartLink(ctx context.Context, items domain.CartRequest) (domain.CartLink, error) {
	start := time.Now()
	link, err := s.buildCartLink(ctx, items)
	s.metrics.ObserveCartBuild(cartBuildResult(err), time.Since(start))

	if err != nil {
		s.log.WarnContext(ctx, "cart build failed",
			slog.Int("items", len(items)),
			slog.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
			logging.Err(err),
		)
		return "", err
	}

	s.log.InfoContext(ctx, "cart link built",
		slog.Int("items", len(items)),
		slog.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()),
	)
	return link, nil
}

func (s *CartService) buildCartLink(ctx context.Context, items domain.CartRequest) (domain.CartLink, error) {
	if strings.TrimSpace(s.baseURL) == "" {
		return "", &domain.ConfigurationError{Setting: "cart.base_url"}
	}

	names := items.SortedNames()
	if err := s.validateItems(names, items); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	identifiers := make([]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, name := range names {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outcome := s.resolver.ResolveItem(gctx, name)
			if !outcome.Status.HasIdentifier() || outcome.Identifier == "" {
				return itemError(name, outcome)
			}

			identifiers[i] = outcome.Identifier
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	// Items skipped because ctx ended before they were started
	if lo.Contains(identifiers, "") {
		return "", fmt.Errorf("cart build interrupted: %w", ctx.Err())
	}

	var b strings.Builder
	b.WriteString(s.baseURL)
	for i, name := range names {
		fmt.Fprintf(&b, "&ASIN.%d=%s&Quantity.%d=%d", i+1, identifiers[i], i+1, items[name])
	}

	return domain.CartLink(b.String()), nil
}

func (s *CartService) validateItems(names []string, items domain.CartRequest) error {
	req := cartLines{
		Lines: lo.Map(names, func(name string, _ int) cartLine {
			return cartLine{Name: name, Quantity: items[name]}
		}),
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrInvalidCartRequest, describeValidation(verrs[0], req))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidCartRequest, err)
	}
	return nil
}

func describeValidation(fe validator.FieldError, req cartLines) string {
	switch fe.Tag() {
	case "required", "min":
		return "at least one item is required"
	case "notblank":
		return "item names cannot be blank"
	case "gt":
		line, _ := lo.Find(req.Lines, func(l cartLine) bool { return l.Quantity <= 0 })
		return fmt.Sprintf("quantity for %q must be a positive integer", line.Name)
	default:
		return fe.Error()
	}
}

func itemError(name string, outcome domain.ResolutionOutcome) *domain.ItemResolutionError {
	message := outcome.ErrorMessage
	if message == "" && outcome.Status.HasIdentifier() {
		message = "resolution returned no identifier"
	}
	status := outcome.Status
	if status.HasIdentifier() {
		status = domain.StatusError
	}

	return &domain.ItemResolutionError{
		Item:    name,
		Status:  status,
		Message: message,
		Err:     outcome.Err,
	}
}

func cartBuildResult(err error) string {
	var cfgErr *domain.ConfigurationError
	var itemErr *domain.ItemResolutionError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &cfgErr):
		return "config"
	case errors.Is(err, domain.ErrInvalidCartRequest):
		return "invalid"
	case errors.As(err, &itemErr):
		return "item_failed"
	default:
		return "interrupted"
	}
}
