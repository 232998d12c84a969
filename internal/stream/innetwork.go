package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chrscato/bph-tic/internal/errs"
	"github.com/chrscato/bph-tic/internal/model"
)

// RootMeta carries the in-network file's top-level metadata, denormalized
// onto every Rate the Normalizer derives from this file.
type RootMeta struct {
	ReportingEntityName string
	ReportingEntityType string
	PlanName             string
	IssuerName           string
	PlanID               string
	PlanMarketType       string
	LastUpdatedOn        string
	Version              string
}

// ItemHandler is invoked once per in_network array element.
type ItemHandler func(model.RawInNetworkItem) error

// ProviderRefHandler is invoked once per top-level provider_references
// entry, in file order relative to the in_network items (spec.md §4.9's
// two-pass contract when the caller chooses to capture it;
// standard_in_network files with provider_groups inline never populate
// this).
type ProviderRefHandler func(model.RawProviderReference) error

// IterateInNetwork streams r as a standard_in_network file (top-level
// in_network[] array), calling onItem for every element and onProviderRef
// for every provider_references entry encountered. meta is populated as
// the root-level scalar fields are read.
func IterateInNetwork(url string, r io.Reader, onItem ItemHandler, onProviderRef ProviderRefHandler) (*RootMeta, error) {
	dec := json.NewDecoder(r)
	meta := &RootMeta{}

	t, err := dec.Token()
	if err != nil {
		return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("expected object, got %v", t)}
	}

	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
		}
		field, ok := t.(string)
		if !ok {
			return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("expected field name, got %T", t)}
		}

		switch field {
		case "reporting_entity_name":
			if err := dec.Decode(&meta.ReportingEntityName); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "reporting_entity_type":
			if err := dec.Decode(&meta.ReportingEntityType); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "plan_name":
			if err := dec.Decode(&meta.PlanName); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "issuer_name":
			if err := dec.Decode(&meta.IssuerName); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "plan_id":
			if err := dec.Decode(&meta.PlanID); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "plan_market_type":
			if err := dec.Decode(&meta.PlanMarketType); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "last_updated_on":
			if err := dec.Decode(&meta.LastUpdatedOn); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "version":
			if err := dec.Decode(&meta.Version); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
			}
		case "provider_references":
			if err := streamArray(url, dec, func() error {
				var ref model.RawProviderReference
				if err := dec.Decode(&ref); err != nil {
					return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
				}
				if onProviderRef != nil {
					return onProviderRef(ref)
				}
				return nil
			}); err != nil {
				return nil, err
			}
		case "in_network":
			if err := streamArray(url, dec, func() error {
				var item model.RawInNetworkItem
				if err := dec.Decode(&item); err != nil {
					return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
				}
				if onItem != nil {
					return onItem(item)
				}
				return nil
			}); err != nil {
				return nil, err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("skip field %s: %w", field, err)}
			}
		}
	}
	return meta, nil
}
