package usecase

import "github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"

// Resolve picks one listing from candidates, scanning in document order.
// Sponsored and out-of-stock listings are never picked. The first eligible
// best seller wins outright; otherwise the first eligible listing is the top
// result.
func Resolve(candidates []domain.Candidate) domain.ResolutionOutcome {
	if len(candidates) == 0 {
		return domain.NoResultsFound()
	}

	fallback := ""
	for _, c := range candidates {
		if c.IsSponsored || c.IsOutOfStock {
			continue
		}
		if fallback == "" {
			fallback = c.Identifier
		}
		if c.IsBestSeller {
			return domain.BestSeller(c.Identifier)
		}
	}

	if fallback != "" {
		return domain.TopResult(fallback)
	}
	return domain.NoInStockResultsFound()
}
