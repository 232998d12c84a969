package payers

import (
	"strings"

	"github.com/chrscato/bph-tic/internal/handler"
	"github.com/chrscato/bph-tic/internal/model"
)

// aetnaHandler covers Aetna and its state affiliates. Grounded on
// payers/aetna.py's AetnaHandler: the Python source's CVS-field
// renames and hybrid provider_groups/provider_references merging
// operate on untyped dicts with keys the Go RawNegotiatedRate/
// RawProviderGroup types already model directly (NPI tolerates string
// or int via FlexNPI, a bare-string TIN is coerced to the typed object
// form by RawTIN.UnmarshalJSON, and a rate with both provider_groups
// and provider_references inline is passed through unmodified for the
// Normalizer's two-pass resolution to handle). What survives as real
// normalization work here is lowercasing billing_class, per
// _normalize_aetna_pricing.
type aetnaHandler struct{}

func (aetnaHandler) Name() string { return "aetna" }

func (aetnaHandler) ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem {
	for ri := range item.NegotiatedRates {
		prices := item.NegotiatedRates[ri].NegotiatedPrices
		for pi := range prices {
			prices[pi].BillingClass = strings.ToLower(prices[pi].BillingClass)
		}
	}
	return []model.RawInNetworkItem{item}
}

func init() {
	h := aetnaHandler{}
	for _, alias := range []string{"aetna", "aetna_florida", "aetna_health_inc"} {
		handler.Register(alias, h)
	}
}
