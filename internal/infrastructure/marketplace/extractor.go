package marketplace

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
)

// Markers of the marketplace search results page
const (
	resultSelector      = `div[data-component-type="s-search-result"]`
	identifierAttr      = "data-asin"
	labelSelector       = "span"
	badgeSelector       = "span.a-badge-text"
	sponsoredText       = "sponsored"
	unavailableText     = "currently unavailable"
	bestSellerBadgeText = "best seller"
)

// Extractor parses search results markup into candidates
type Extractor struct{}

// NewExtractor creates a new candidate extractor
func NewExtractor() Extractor {
	return Extractor{}
}

// ExtractCandidates returns the listings of markup in document order. A page
// without listings yields an empty slice, not an error.
func (Extractor) ExtractCandidates(markup string) ([]domain.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	candidates := make([]domain.Candidate, 0)
	doc.Find(resultSelector).Each(func(_ int, block *goquery.Selection) {
		id := strings.TrimSpace(block.AttrOr(identifierAttr, ""))
		if id == "" {
			return
		}

		candidates = append(candidates, domain.Candidate{
			Identifier:   id,
			IsSponsored:  hasText(block.Find(labelSelector), sponsoredText),
			IsOutOfStock: hasText(block.Find(labelSelector), unavailableText),
			IsBestSeller: hasText(block.Find(badgeSelector), bestSellerBadgeText),
		})
	})

	return candidates, nil
}

// hasText reports whether any element of sel contains fragment, ignoring case
func hasText(sel *goquery.Selection, fragment string) bool {
	found := false
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), fragment) {
			found = true
			return false
		}
		return true
	})
	return found
}
