// Package orchestrator drives the per-payer Pipeline Orchestrator
// state machine (spec.md §4.8): INIT → FETCH_TOC → PARSE_TOC →
// FOR_EACH_FILE{FETCH→PARSE→NORMALIZE→WRITE} → FINALIZE → DONE, with
// budget enforcement and bounded payer-level concurrency.
//
// Grounded on the teacher's mrfparser/main.go and in_network/main.go
// for the overall fetch→parse→write sequencing, and on
// _examples/original_source/production_etl_pipeline.py's
// process_all_payers/process_payer for the per-payer state transitions
// and budget checks this package reimplements with an errgroup worker
// pool instead of Python's ThreadPoolExecutor.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrscato/bph-tic/internal/batch"
	"github.com/chrscato/bph-tic/internal/config"
	"github.com/chrscato/bph-tic/internal/errs"
	"github.com/chrscato/bph-tic/internal/fetch"
	"github.com/chrscato/bph-tic/internal/handler"
	"github.com/chrscato/bph-tic/internal/identity"
	"github.com/chrscato/bph-tic/internal/model"
	"github.com/chrscato/bph-tic/internal/normalize"
	"github.com/chrscato/bph-tic/internal/providerref"
	"github.com/chrscato/bph-tic/internal/quality"
	"github.com/chrscato/bph-tic/internal/stream"
	"github.com/chrscato/bph-tic/internal/telemetry"
)

const estimatedRowBytes = 1024

// Orchestrator owns the process-wide immutable state (spec.md §9:
// "configuration and the handler registry are process-wide,
// initialized once, immutable after") and fans work out to one
// pipeline per configured payer.
type Orchestrator struct {
	cfg       *config.Config
	log       *zap.Logger
	fetcher   *fetch.Fetcher
	allowlist map[string]bool
}

// New builds an Orchestrator from a validated Config. If
// processing.npi_allowlist_file is set, it is loaded once here and
// shared read-only across every payer pipeline.
func New(cfg *config.Config, log *zap.Logger) (*Orchestrator, error) {
	var allow map[string]bool
	if cfg.Processing.NPIAllowlistFile != "" {
		var err error
		allow, err = normalize.LoadAllowlist(cfg.Processing.NPIAllowlistFile)
		if err != nil {
			return nil, err
		}
	}
	return &Orchestrator{
		cfg:       cfg,
		log:       log,
		fetcher:   fetch.New(),
		allowlist: allow,
	}, nil
}

// PayerResult is one payer pipeline's outcome.
type PayerResult struct {
	Payer     string
	Failed    bool
	Reason    string
	Truncated bool
	Manifest  batch.Manifest
}

// RunSummary aggregates every payer pipeline's outcome for the whole
// run, enough to decide the process exit code (spec.md §6).
type RunSummary struct {
	Results   []PayerResult
	Cancelled bool
}

// AllFailed reports whether every configured payer failed to emit any
// output — the only condition spec.md §7 treats as a non-zero,
// non-cancellation exit.
func (s RunSummary) AllFailed() bool {
	if len(s.Results) == 0 {
		return false
	}
	for _, r := range s.Results {
		if !r.Failed {
			return false
		}
	}
	return true
}

// Run executes every configured payer's pipeline under a worker pool
// of size processing.parallel_workers (default 4), per spec.md §5.
func (o *Orchestrator) Run(ctx context.Context) RunSummary {
	workers := o.cfg.Processing.ParallelWorkers
	if workers <= 0 {
		workers = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]PayerResult, len(o.cfg.PayerEndpoints))
	i := 0
	idx := make(map[string]int, len(o.cfg.PayerEndpoints))
	for name := range o.cfg.PayerEndpoints {
		idx[name] = i
		i++
	}

	for name, url := range o.cfg.PayerEndpoints {
		name, url := name, url
		pos := idx[name]
		g.Go(func() error {
			results[pos] = o.runPayer(gctx, name, url)
			return nil
		})
	}
	_ = g.Wait()

	return RunSummary{Results: results, Cancelled: errors.Is(ctx.Err(), context.Canceled)}
}

// runPayer drives one payer through INIT → ... → DONE. It never
// returns an error itself: every failure is captured in the returned
// PayerResult so a single payer's failure cannot abort the others
// (spec.md §7: "only ConfigError is fatal").
func (o *Orchestrator) runPayer(ctx context.Context, payerName, url string) PayerResult {
	log := o.log.With(zap.String("payer", payerName), zap.String("state", "INIT"))
	startedAt := time.Now().UTC()
	runDate := startedAt.Format("2006-01-02")

	if maxSec := o.cfg.Processing.MaxProcessingTimeSec; maxSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(maxSec)*time.Second)
		defer cancel()
	}

	payerUUID := identity.PayerUUID(payerName)
	h := handler.Get(payerName)
	gate := quality.New(o.cfg.Processing.MinCompletenessPct, o.cfg.Processing.MinAccuracyScore)

	norm := normalize.New(payerUUID, payerName, o.cfg.CPTWhitelist, normalize.Bounds{
		MinRate:         o.cfg.QualityRules.Rates.MinRate,
		MaxRate:         o.cfg.QualityRules.Rates.MaxRate,
		PerCodeCeilings: o.cfg.QualityRules.HighCostProcedures.MaxReasonableRates,
	}, gate, o.allowlist)

	maxResidentRows := 0
	if mb := o.cfg.Processing.MemoryThresholdMB; mb > 0 {
		maxResidentRows = (mb * 1024 * 1024) / estimatedRowBytes
	}
	batchSize := o.cfg.Processing.BatchSize
	if batchSize <= 0 {
		batchSize = 10_000
	}
	root := outputRoot(o.cfg)
	compression := o.cfg.Output.Compression
	rateBatcher := batch.New[model.Rate](root, batchSize, maxResidentRows, compression)
	orgBatcher := batch.New[model.Organization](root, batchSize, maxResidentRows, compression)
	providerBatcher := batch.New[model.Provider](root, batchSize, maxResidentRows, compression)
	analyticsBatcher := batch.New[model.Analytics](root, batchSize, maxResidentRows, compression)

	progress := telemetry.New(log, payerName, 0)
	agg := newAnalyticsAggregator(payerName)

	log.Info("fetching toc")
	tocBody, err := o.fetcher.Open(ctx, url)
	if err != nil {
		log.Error("fetch toc failed", zap.Error(err))
		return PayerResult{Payer: payerName, Failed: true, Reason: err.Error()}
	}
	defer tocBody.Close()

	peeked, shape := peekShape(tocBody)

	filesProcessed, filesFailed := 0, 0
	truncated := false
	truncationReason := ""

	onFile := func(tf model.TOCFile) error {
		if o.cfg.Processing.MaxFilesPerPayer > 0 && filesProcessed >= o.cfg.Processing.MaxFilesPerPayer {
			return &errs.BudgetExceeded{Reason: "max_files_per_payer"}
		}
		if tpp, ok := h.(handler.TOCPreprocessor); ok {
			tf = tpp.PreprocessTOC(tf)
		}

		filesProcessed++
		recs, ferr := o.processFile(ctx, payerName, tf, h, norm, rateBatcher, orgBatcher, providerBatcher, progress, agg)
		progress.FileDone(recs)

		if ferr != nil {
			var budgetErr *errs.BudgetExceeded
			if errors.As(ferr, &budgetErr) {
				return ferr // propagate to stop enumeration; caller marks truncated
			}
			filesFailed++
			log.Warn("file failed, continuing with next file", zap.String("url", tf.InNetworkFileURL), zap.Error(ferr))
		}
		return nil
	}

	// Direct in-network endpoints (no TOC wrapper) are treated as a
	// single-file TOC of one entry (spec.md §6: "any payer endpoint is
	// either an index.json[.gz] TOC or a direct in-network file").
	var iterErr error
	if shape.isInNetwork && !shape.isTOC {
		iterErr = onFile(model.TOCFile{PlanName: payerName, InNetworkFileURL: url})
	} else {
		iterErr = stream.IterateTOC(url, combinedReader(peeked, tocBody), onFile)
	}

	if iterErr != nil {
		var budgetErr *errs.BudgetExceeded
		if errors.As(iterErr, &budgetErr) {
			truncated = true
			truncationReason = budgetErr.Reason
		} else {
			var parseErr *errs.ParseError
			if errors.As(iterErr, &parseErr) {
				log.Warn("toc parse error", zap.Error(iterErr))
			} else {
				log.Error("toc processing failed", zap.Error(iterErr))
				return PayerResult{Payer: payerName, Failed: true, Reason: iterErr.Error()}
			}
		}
	}

	if ctx.Err() == context.DeadlineExceeded {
		truncated = true
		truncationReason = "max_processing_time_seconds"
	}

	log.Info("finalizing")
	for name, agRow := range agg.rows() {
		_ = name
		_ = analyticsBatcher.Add(batch.PartitionKey{Entity: "analytics", Payer: payerName, Date: runDate}, agRow)
	}

	var flushErr error
	for _, err := range []error{
		rateBatcher.FlushAll(),
		orgBatcher.FlushAll(),
		providerBatcher.FlushAll(),
		analyticsBatcher.FlushAll(),
	} {
		if err != nil && flushErr == nil {
			flushErr = err
		}
	}
	if flushErr != nil {
		log.Error("finalize flush failed", zap.Error(flushErr))
	}

	counters := gate.Counters[payerName]
	if counters == nil {
		counters = &quality.Counters{}
	}

	manifest := batch.Manifest{
		Payer:                payerName,
		RunDate:              runDate,
		StartedAt:            startedAt,
		FinishedAt:           time.Now().UTC(),
		FilesProcessed:       filesProcessed,
		FilesFailed:          filesFailed,
		RatesAdmitted:        counters.Admitted,
		RejectedCompleteness: counters.RejectedCompleteness,
		RejectedAccuracy:     counters.RejectedAccuracy,
		RejectedWhitelist:    counters.RejectedWhitelist,
		RejectedBounds:       counters.RejectedBounds,
		Truncated:            truncated,
		TruncationReason:     truncationReason,
		FailedPartitions:     failedPartitionKeys(rateBatcher, orgBatcher, providerBatcher, analyticsBatcher),
	}
	if err := batch.WriteManifest(root, manifest); err != nil {
		log.Error("write manifest failed", zap.Error(err))
	}

	log.Info("done",
		zap.Bool("truncated", truncated),
		zap.Int64("rates_admitted", counters.Admitted),
	)

	return PayerResult{
		Payer:     payerName,
		Failed:    false,
		Truncated: truncated,
		Manifest:  manifest,
	}
}

// processFile runs FETCH → PARSE → NORMALIZE → WRITE for one TOC
// entry. The file is always read twice — first to build the
// group_id → group table from any top-level provider_references, then
// to stream in_network items against it (spec.md §4.9's two-pass
// design note).
func (o *Orchestrator) processFile(
	ctx context.Context,
	payerName string,
	tf model.TOCFile,
	h handler.Handler,
	norm *normalize.Normalizer,
	rateBatcher *batch.Batcher[model.Rate],
	orgBatcher *batch.Batcher[model.Organization],
	providerBatcher *batch.Batcher[model.Provider],
	progress *telemetry.Progress,
	agg *analyticsAggregator,
) (int64, error) {
	refs := providerref.NewTable()

	firstPass, err := o.fetcher.Open(ctx, tf.InNetworkFileURL)
	if err != nil {
		return 0, err
	}
	_, err = stream.IterateInNetwork(tf.InNetworkFileURL, firstPass, nil, func(ref model.RawProviderReference) error {
		refs.Add(ref)
		return nil
	})
	firstPass.Close()
	if err != nil {
		return 0, err
	}

	secondPass, err := o.fetcher.Open(ctx, tf.InNetworkFileURL)
	if err != nil {
		return 0, err
	}
	defer secondPass.Close()

	runDate := time.Now().UTC().Format("2006-01-02")
	itemCount := int64(0)
	maxRecords := o.cfg.Processing.MaxRecordsPerFile

	_, err = stream.IterateInNetwork(tf.InNetworkFileURL, secondPass, func(item model.RawInNetworkItem) error {
		if maxRecords > 0 && itemCount >= int64(maxRecords) {
			return &errs.BudgetExceeded{Reason: "max_records_per_file"}
		}
		itemCount++

		parsed, herr := callHandler(h, payerName, item)
		if herr != nil {
			return herr
		}
		for _, normalized := range parsed {
			result := norm.Normalize(normalized, refs, normalize.RootMeta{
				PlanName:       tf.PlanName,
				PlanID:         tf.PlanID,
				PlanMarketType: tf.PlanMarketType,
				SourceFileURL:  tf.InNetworkFileURL,
			})

			for _, npiStr := range result.NPIMismatches {
				progress.NPIMismatch(npiStr)
			}
			for _, org := range result.NewOrgs {
				if err := orgBatcher.Add(batch.PartitionKey{Entity: "organizations", Payer: payerName, Date: runDate}, org); err != nil {
					return &errs.WriteError{Partition: "organizations", Err: err}
				}
			}
			for _, p := range result.NewProviders {
				if err := providerBatcher.Add(batch.PartitionKey{Entity: "providers", Payer: payerName, Date: runDate}, p); err != nil {
					return &errs.WriteError{Partition: "providers", Err: err}
				}
			}
			for _, r := range result.Rates {
				if err := rateBatcher.Add(batch.PartitionKey{Entity: "rates", Payer: payerName, Date: runDate}, r); err != nil {
					return &errs.WriteError{Partition: "rates", Err: err}
				}
				agg.observe(r)
			}
		}
		return nil
	}, nil)

	return itemCount, err
}

// callHandler invokes h.ParseInNetwork, converting a panic into a
// HandlerError so a misbehaving payer adapter skips only the file it
// was processing rather than crashing the whole payer run (spec.md §7:
// "HandlerError: treated as ParseError; logged with payer identifier").
func callHandler(h handler.Handler, payerName string, item model.RawInNetworkItem) (out []model.RawInNetworkItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errs.HandlerError{Payer: payerName, Err: fmt.Errorf("%v", r)}
		}
	}()
	out = h.ParseInNetwork(item)
	return out, nil
}

func outputRoot(cfg *config.Config) string {
	if cfg.Output.LocalDirectory != "" {
		return cfg.Output.LocalDirectory
	}
	return "./output"
}

type shape struct {
	isTOC       bool
	isInNetwork bool
}

// peekShape reads a small prefix of r, without losing it for the real
// decoder, to classify the endpoint per spec.md §6's auto-detection
// rule. stream.DetectShape runs against a private copy of the peeked
// bytes; combinedReader below re-splices the original bytes back in
// front of the stream for the real parse.
func peekShape(r io.Reader) ([]byte, shape) {
	buf := make([]byte, 65536)
	n, _ := io.ReadFull(r, buf)
	peeked := buf[:n]
	isTOC, isInNetwork, _ := stream.DetectShape(bytes.NewReader(peeked))
	return peeked, shape{isTOC: isTOC, isInNetwork: isInNetwork}
}

// combinedReader re-splices the bytes already consumed by peekShape
// back in front of the remainder of body.
func combinedReader(peeked []byte, body io.Reader) io.Reader {
	return io.MultiReader(bytes.NewReader(peeked), body)
}

func failedPartitionKeys(batchers ...interface{ FailedPartitions() []string }) []string {
	var out []string
	for _, b := range batchers {
		out = append(out, b.FailedPartitions()...)
	}
	return out
}
