// Package payers registers the built-in per-payer handlers.
//
// Each handler file is grounded on its Python counterpart in
// _examples/original_source/src/tic_mrf_scraper/payers/.
package payers

import (
	"strings"

	"github.com/chrscato/bph-tic/internal/handler"
	"github.com/chrscato/bph-tic/internal/model"
)

// centeneHandler covers Centene-family payers, including Fidelis and
// Ambetter. Grounded on payers/centene.py's CenteneHandler: standard
// CMS-compliant structure, direct NPI/TIN in provider_groups, lowercase
// negotiated_type, service_code coerced to a list.
type centeneHandler struct{}

func (centeneHandler) Name() string { return "centene" }

func (centeneHandler) ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem {
	for ri := range item.NegotiatedRates {
		prices := item.NegotiatedRates[ri].NegotiatedPrices
		for pi := range prices {
			prices[pi].NegotiatedType = strings.ToLower(prices[pi].NegotiatedType)
		}
	}
	item.NegotiationArrangement = strings.ToLower(item.NegotiationArrangement)
	return []model.RawInNetworkItem{item}
}

func init() {
	h := centeneHandler{}
	for _, alias := range []string{"centene", "centene_fidelis", "fidelis", "centene_ambetter"} {
		handler.Register(alias, h)
	}
}
