package payers

import (
	"strings"

	"github.com/chrscato/bph-tic/internal/handler"
	"github.com/chrscato/bph-tic/internal/model"
)

// horizonHandler covers Horizon Blue Cross Blue Shield of New Jersey.
// Grounded on payers/horizon.py's HorizonHandler: geographic_region
// codes like "NJ_NORTH" are split into state/region, and billing_class
// is lowercased. TIN-string and NPI-string coercions are handled
// structurally by RawTIN and FlexNPI and need no handler-side work.
type horizonHandler struct{}

func (horizonHandler) Name() string { return "horizon" }

func (horizonHandler) ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem {
	for ri := range item.NegotiatedRates {
		prices := item.NegotiatedRates[ri].NegotiatedPrices
		for pi := range prices {
			prices[pi].BillingClass = strings.ToLower(prices[pi].BillingClass)
			if prices[pi].GeographicRegion != "" {
				prices[pi].ServiceGeography = parseHorizonRegion(prices[pi].GeographicRegion)
			}
		}
	}
	return []model.RawInNetworkItem{item}
}

// parseHorizonRegion splits codes of the form "NJ_NORTH" into state and
// region; codes with no underscore are treated as statewide.
func parseHorizonRegion(region string) *model.ServiceGeography {
	state, area, ok := strings.Cut(region, "_")
	if !ok {
		return &model.ServiceGeography{State: region, Region: "statewide", FullCode: region}
	}
	return &model.ServiceGeography{State: state, Region: strings.ToLower(area), FullCode: region}
}

func init() {
	h := horizonHandler{}
	for _, alias := range []string{"horizon_bcbs", "horizon", "horizon_healthcare"} {
		handler.Register(alias, h)
	}
}
