package domain

// Candidate is one listing parsed from a marketplace search results page
type Candidate struct {
	Identifier   string `json:"asin"`
	IsSponsored  bool   `json:"isSponsored"`
	IsOutOfStock bool   `json:"isOutOfStock"`
	IsBestSeller bool   `json:"isBestSeller"`
}

// ResolutionStatus tags the result of resolving a query to a single listing
type ResolutionStatus string

const (
	StatusBestSeller            ResolutionStatus = "best_seller"
	StatusTopResult             ResolutionStatus = "top_result"
	StatusNoResultsFound        ResolutionStatus = "no_results_found"
	StatusNoInStockResultsFound ResolutionStatus = "no_in_stock_results_found"
	StatusError                 ResolutionStatus = "error"
)

// HasIdentifier reports whether outcomes with this status carry an identifier
func (s ResolutionStatus) HasIdentifier() bool {
	return s == StatusBestSeller || s == StatusTopResult
}

// ResolutionOutcome is the single result of resolving one product query.
// Identifier is set iff Status.HasIdentifier().
type ResolutionOutcome struct {
	Status       ResolutionStatus `json:"status"`
	Identifier   string           `json:"asin,omitempty"`
	ErrorMessage string           `json:"error,omitempty"`

	// Err keeps the typed cause of an error outcome for errors.Is/As
	Err error `json:"-"`
}

// BestSeller selects id because it carries a best-seller badge
func BestSeller(id string) ResolutionOutcome {
	return ResolutionOutcome{Status: StatusBestSeller, Identifier: id}
}

// TopResult selects id as the first eligible listing
func TopResult(id string) ResolutionOutcome {
	return ResolutionOutcome{Status: StatusTopResult, Identifier: id}
}

func NoResultsFound() ResolutionOutcome {
	return ResolutionOutcome{Status: StatusNoResultsFound, ErrorMessage: ErrNoResultsFound.Error()}
}

func NoInStockResultsFound() ResolutionOutcome {
	return ResolutionOutcome{Status: StatusNoInStockResultsFound, ErrorMessage: ErrNoInStockResultsFound.Error()}
}

// Failed builds an error outcome from err
func Failed(err error) ResolutionOutcome {
	return ResolutionOutcome{Status: StatusError, ErrorMessage: err.Error(), Err: err}
}
