// Package telemetry tracks per-payer run progress and surfaces it via
// structured logging.
//
// Grounded on _examples/original_source/production_etl_pipeline.py's
// ProgressTracker (current_payer, files_completed, total_files,
// records_processed, rate/ETA computation), reworked from a tqdm
// progress bar — absent from this module's dependency stack — to
// periodic zap.Logger.Info lines, the observability surface the
// teacher and the rest of the corpus use throughout.
package telemetry

import (
	"time"

	"go.uber.org/zap"
)

// Progress accumulates one payer pipeline's counters across its run
// and logs a snapshot each time FileDone is called.
type Progress struct {
	log       *zap.Logger
	payer     string
	startedAt time.Time

	filesCompleted int
	totalFiles     int
	recordsCount   int64
}

// New starts tracking payer's progress against an expected file count
// (0 if unknown at start).
func New(log *zap.Logger, payer string, totalFiles int) *Progress {
	return &Progress{log: log, payer: payer, startedAt: time.Now(), totalFiles: totalFiles}
}

// FileDone records one more completed file and its record count, and
// logs the running rate.
func (p *Progress) FileDone(records int64) {
	p.filesCompleted++
	p.recordsCount += records

	elapsed := time.Since(p.startedAt).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(p.recordsCount) / elapsed
	}
	p.log.Info("progress",
		zap.String("payer", p.payer),
		zap.Int("files_completed", p.filesCompleted),
		zap.Int("total_files", p.totalFiles),
		zap.Int64("records_processed", p.recordsCount),
		zap.Float64("records_per_sec", rate),
	)
}

// NPIMismatch logs a duplicate-NPI-under-different-organization event
// per the collision policy in SPEC_FULL.md §9.
func (p *Progress) NPIMismatch(npi string) {
	p.log.Warn("npi seen under a second organization; keeping first binding",
		zap.String("payer", p.payer),
		zap.String("npi", npi),
	)
}

// RecordsProcessed reports the running total.
func (p *Progress) RecordsProcessed() int64 { return p.recordsCount }

// FilesCompleted reports the running total.
func (p *Progress) FilesCompleted() int { return p.filesCompleted }
