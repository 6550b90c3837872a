package invoice

import (
	"fmt"

	"github.com/rezonia/pohoda-xml/internal/model"
)

// Report summarizes what one Rewrite changed
type Report struct {
	RemovedCodes     int      `json:"removed_codes"`
	ExpandedCombos   int      `json:"expanded_combos"`
	CreatedItems     int      `json:"created_items"`
	MissingProducts  []string `json:"missing_products,omitempty"`
	NormalizedPrices int      `json:"normalized_prices"`
	InjectedStores   int      `json:"injected_stores"`
	EnrichedHeaders  int      `json:"enriched_headers"`
	FeedFetched      bool     `json:"feed_fetched"`

	PriceErrors []*model.PriceError `json:"-"`
	warnings    []string
}

func (r *Report) warn(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the recoverable problems met during the rewrite, in the
// order they happened
func (r *Report) Warnings() []string {
	if r == nil {
		return nil
	}
	return r.warnings
}
