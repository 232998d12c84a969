package payers

import (
	"github.com/chrscato/bph-tic/internal/handler"
	"github.com/chrscato/bph-tic/internal/model"
)

// bcbsFLHandler covers BCBS Florida. Grounded on payers/bcbs_fl.py's
// Bcbs_FlHandler, which deliberately omits a parse_in_network override
// "to use streaming parser's provider extraction" — BCBS-FL's
// provider_groups/provider_references already match the standard
// shape the stream parser and Normalizer handle natively, so the
// override would only reimplement the default. Registered explicitly
// rather than left unregistered so handler.Names() still reports it
// as a known payer.
type bcbsFLHandler struct{}

func (bcbsFLHandler) Name() string { return "bcbs_fl" }

func (bcbsFLHandler) ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem {
	return []model.RawInNetworkItem{item}
}

func init() {
	handler.Register("bcbs_fl", bcbsFLHandler{})
}
