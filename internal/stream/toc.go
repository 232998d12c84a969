// Package stream provides constant-memory, token-by-token JSON traversal
// of TOC and in-network MRF files.
//
// Grounded on the teacher's mrfparser/stream.go and in_network/stream.go
// (encoding/json.Decoder token walks that never materialize the root
// array), and on _examples/original_source/src/tic_mrf_scraper/
// fetch/blobs.py's three observed TOC shapes.
package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chrscato/bph-tic/internal/errs"
	"github.com/chrscato/bph-tic/internal/model"
)

// TOCHandler is the Orchestrator-supplied hook invoked once per
// discovered in-network file.
type TOCHandler func(model.TOCFile) error

// IterateTOC streams r as a TOC file, auto-detecting the
// standard_toc / legacy_blobs / direct_in_network shape from top-level
// keys (spec.md §6), and calls onFile once per in-network file
// encountered. r is never fully buffered.
func IterateTOC(url string, r io.Reader, onFile TOCHandler) error {
	dec := json.NewDecoder(r)

	t, err := dec.Token()
	if err != nil {
		return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("expected object, got %v", t)}
	}

	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
		}
		field, ok := t.(string)
		if !ok {
			return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("expected field name, got %T", t)}
		}

		switch field {
		case "reporting_structure":
			if err := iterateReportingStructures(url, dec, onFile); err != nil {
				return err
			}
		case "blobs":
			if err := iterateLegacyBlobs(url, dec, onFile); err != nil {
				return err
			}
		case "in_network_files":
			if err := iterateDirectInNetwork(url, dec, onFile); err != nil {
				return err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("skip field %s: %w", field, err)}
			}
		}
	}
	return nil
}

func iterateReportingStructures(url string, dec *json.Decoder, onFile TOCHandler) error {
	return streamArray(url, dec, func() error {
		var rs model.RawReportingStructure
		if err := dec.Decode(&rs); err != nil {
			return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
		}

		var providerRefURL string
		for _, pr := range rs.ProviderReferences {
			providerRefURL = pr.Location
			break
		}

		plans := rs.ReportingPlans
		if len(plans) == 0 {
			plans = []model.RawReportingPlan{{}}
		}

		for _, plan := range plans {
			for _, f := range rs.InNetworkFiles {
				tf := model.TOCFile{
					PlanName:             plan.PlanName,
					PlanID:               plan.PlanID,
					PlanMarketType:       plan.PlanMarketType,
					IssuerName:           plan.IssuerName,
					Description:          f.Description,
					InNetworkFileURL:     f.Location,
					ProviderReferenceURL: providerRefURL,
				}
				if rs.AllowedAmountFile != nil {
					tf.AllowedAmountFileURL = rs.AllowedAmountFile.Location
				}
				if err := onFile(tf); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func iterateLegacyBlobs(url string, dec *json.Decoder, onFile TOCHandler) error {
	i := 0
	err := streamArray(url, dec, func() error {
		var b model.RawBlob
		if err := dec.Decode(&b); err != nil {
			return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
		}
		if b.URL == "" {
			return nil
		}
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("blob_%d", i)
		}
		i++
		return onFile(model.TOCFile{
			PlanName:         name,
			Description:      b.Description,
			InNetworkFileURL: b.URL,
		})
	})
	return err
}

func iterateDirectInNetwork(url string, dec *json.Decoder, onFile TOCHandler) error {
	i := 0
	err := streamArray(url, dec, func() error {
		var f model.RawFileLocation
		if err := dec.Decode(&f); err != nil {
			return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
		}
		if f.Location == "" {
			return nil
		}
		name := f.Description
		if name == "" {
			name = fmt.Sprintf("file_%d", i)
		}
		i++
		return onFile(model.TOCFile{
			PlanName:         name,
			Description:      f.Description,
			InNetworkFileURL: f.Location,
		})
	})
	return err
}

// streamArray reads a JSON array element by element, calling fn for each.
func streamArray(url string, dec *json.Decoder, fn func() error) error {
	t, err := dec.Token()
	if err != nil {
		return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
	}
	if d, ok := t.(json.Delim); !ok || d != '[' {
		return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: fmt.Errorf("expected array, got %v", t)}
	}
	for dec.More() {
		if err := fn(); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	if err != nil {
		return &errs.ParseError{URL: url, Offset: dec.InputOffset(), Err: err}
	}
	return nil
}

// DetectShape inspects the first-level keys of a small JSON sample to
// decide whether a URL is a TOC index or a direct in-network file
// (spec.md §6's auto-detection rule). It reads top-level keys in order
// and returns at the first recognized one without decoding its value;
// the values of earlier, unrecognized keys are skipped.
func DetectShape(r io.Reader) (isTOC bool, isInNetwork bool, err error) {
	dec := json.NewDecoder(r)
	t, err := dec.Token()
	if err != nil {
		return false, false, err
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return false, false, fmt.Errorf("expected object, got %v", t)
	}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return false, false, err
		}
		field, _ := t.(string)
		switch field {
		case "reporting_structure", "blobs", "in_network_files":
			isTOC = true
		case "in_network":
			isInNetwork = true
		}
		if isTOC || isInNetwork {
			return isTOC, isInNetwork, nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return false, false, err
		}
	}
	return isTOC, isInNetwork, nil
}
