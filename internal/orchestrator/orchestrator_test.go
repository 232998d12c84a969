package orchestrator

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/chrscato/bph-tic/internal/config"
	"github.com/chrscato/bph-tic/internal/errs"
	"github.com/chrscato/bph-tic/internal/model"
)

type panickyHandler struct{}

func (panickyHandler) Name() string { return "panicky" }
func (panickyHandler) ParseInNetwork(model.RawInNetworkItem) []model.RawInNetworkItem {
	panic("malformed payer payload")
}

func TestAllFailedRequiresEveryPayerToFail(t *testing.T) {
	tests := []struct {
		name    string
		results []PayerResult
		want    bool
	}{
		{"empty run", nil, false},
		{"all succeeded", []PayerResult{{Payer: "a"}, {Payer: "b"}}, false},
		{"mixed", []PayerResult{{Payer: "a", Failed: true}, {Payer: "b"}}, false},
		{"all failed", []PayerResult{{Payer: "a", Failed: true}, {Payer: "b", Failed: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := RunSummary{Results: tt.results}
			if got := summary.AllFailed(); got != tt.want {
				t.Errorf("AllFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputRootFallsBackToDefault(t *testing.T) {
	if got := outputRoot(&config.Config{}); got != "./output" {
		t.Errorf("outputRoot(empty config) = %q, want %q", got, "./output")
	}
	cfg := &config.Config{Output: config.Output{LocalDirectory: "/tmp/custom"}}
	if got := outputRoot(cfg); got != "/tmp/custom" {
		t.Errorf("outputRoot(configured) = %q, want %q", got, "/tmp/custom")
	}
}

func TestPeekShapeDetectsTOC(t *testing.T) {
	body := []byte(`{"reporting_structure":[{"reporting_plans":[]}]}`)
	peeked, shape := peekShape(bytes.NewReader(body))
	if !shape.isTOC || shape.isInNetwork {
		t.Errorf("peekShape(TOC) = %+v, want isTOC=true isInNetwork=false", shape)
	}
	if len(peeked) != len(body) {
		t.Errorf("peeked %d bytes, want %d", len(peeked), len(body))
	}
}

func TestPeekShapeDetectsInNetwork(t *testing.T) {
	body := []byte(`{"in_network":[{"billing_code":"99213"}]}`)
	_, shape := peekShape(bytes.NewReader(body))
	if shape.isTOC || !shape.isInNetwork {
		t.Errorf("peekShape(in_network) = %+v, want isTOC=false isInNetwork=true", shape)
	}
}

// combinedReader must reproduce the exact original byte stream even though
// peekShape already consumed a prefix from the underlying reader.
func TestCombinedReaderReproducesOriginalBytes(t *testing.T) {
	original := []byte(`{"in_network":[{"billing_code":"99213","negotiated_rates":[]}]}`)
	src := bytes.NewReader(original)

	peeked, _ := peekShape(src)
	combined := combinedReader(peeked, src)

	got, err := io.ReadAll(combined)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("combinedReader produced %q, want %q", got, original)
	}
}

type fakeBatcher struct{ failed []string }

func (f fakeBatcher) FailedPartitions() []string { return f.failed }

func TestCallHandlerRecoversPanicAsHandlerError(t *testing.T) {
	_, err := callHandler(panickyHandler{}, "acme", model.RawInNetworkItem{})
	if err == nil {
		t.Fatal("expected an error from a panicking handler, got nil")
	}
	var herr *errs.HandlerError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *errs.HandlerError, got %T: %v", err, err)
	}
	if herr.Payer != "acme" {
		t.Errorf("HandlerError.Payer = %q, want %q", herr.Payer, "acme")
	}
}

func TestFailedPartitionKeysAggregatesAcrossBatchers(t *testing.T) {
	got := failedPartitionKeys(
		fakeBatcher{failed: []string{"rates|acme|2026-08-03"}},
		fakeBatcher{failed: nil},
		fakeBatcher{failed: []string{"organizations|acme|2026-08-03"}},
	)
	if len(got) != 2 {
		t.Fatalf("failedPartitionKeys returned %d entries, want 2: %v", len(got), got)
	}
}
