package payers

import (
	"github.com/chrscato/bph-tic/internal/handler"
	"github.com/chrscato/bph-tic/internal/model"
)

// bcbsILHandler covers BCBS Illinois. Grounded on payers/bcbs_il.py's
// Bcbs_IlHandler: its _parse_complex_structure flattens nested
// negotiated_rates × provider_references into per-provider-group
// tuples, which is exactly the cartesian product the Normalizer's
// two-pass provider_references resolution already performs for every
// payer (spec.md §4.9). BCBS-IL's other documented peculiarity, LOCAL
// billing codes, is resolved at the Normalizer per the pass-through
// decision in SPEC_FULL.md §9 rather than in this handler. No
// structural rewrite of the item is needed.
type bcbsILHandler struct{}

func (bcbsILHandler) Name() string { return "bcbs_il" }

func (bcbsILHandler) ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem {
	return []model.RawInNetworkItem{item}
}

func init() {
	handler.Register("bcbs_il", bcbsILHandler{})
}
