// Package batch implements the Batcher & Writer (spec.md §4.7):
// per-entity bounded queues, partitioned columnar flush, atomic
// temp-then-rename writes, and the end-of-run processing_statistics
// manifest.
//
// Grounded on the teacher's in_network/parquet.go
// (RateParquetWriter/ProviderParquetWriter: parquet.GenericWriter[T]
// with Snappy compression and a periodic Flush), generalized here to
// any row type via a Go generic and to the partitioned
// entity/payer/date layout spec.md §6 requires — the teacher only
// ever wrote one file per run, so the partitioning and atomic rename
// are new work grounded directly on the spec's external-interface
// contract.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// PartitionKey identifies one output partition.
type PartitionKey struct {
	Entity string
	Payer  string
	Date   string // YYYY-MM-DD
}

func (k PartitionKey) dir(root string) string {
	return filepath.Join(root, k.Entity, "payer="+k.Payer, "date="+k.Date)
}

func (k PartitionKey) id() string {
	return k.Entity + "|" + k.Payer + "|" + k.Date
}

// codecFor resolves the configured output.compression name to a parquet
// codec, exposing the brotli/lz4 codec family parquet-go links in for
// Snappy alongside the snappy default (spec.md §6's output.compression key).
func codecFor(name string) compress.Codec {
	switch name {
	case "brotli":
		return &parquet.Brotli
	case "lz4":
		return &parquet.Lz4Raw
	case "gzip":
		return &parquet.Gzip
	default:
		return &parquet.Snappy
	}
}

// Batcher accumulates rows of type T in per-partition bounded queues
// and flushes each partition to its own sequence of Parquet files.
type Batcher[T any] struct {
	root        string
	batchSize   int
	compression string

	mu       sync.Mutex
	buffers  map[string][]T
	partNums map[string]int
	pmus     map[string]*sync.Mutex

	sem chan struct{} // memory-ceiling backpressure token bucket

	Failed map[string]error // partitions whose flush failed persistently during the run (spec.md §7 WriteError); never cleared
}

// New builds a Batcher writing under root, flushing a partition once
// it reaches batchSize rows. compression selects the Parquet codec
// (output.compression: "snappy" (default), "brotli", "lz4", "gzip").
// maxResidentRows bounds total buffered rows across all partitions
// (derived from memory_threshold_mb by the caller); Add blocks once
// that ceiling is reached until a flush frees capacity, realizing
// spec.md §5's "applies backpressure to upstream by blocking the
// Normalizer's enqueue."
func New[T any](root string, batchSize, maxResidentRows int, compression string) *Batcher[T] {
	if maxResidentRows <= 0 {
		maxResidentRows = batchSize * 4
	}
	return &Batcher[T]{
		root:        root,
		batchSize:   batchSize,
		compression: compression,
		buffers:     make(map[string][]T),
		partNums:    make(map[string]int),
		pmus:        make(map[string]*sync.Mutex),
		sem:         make(chan struct{}, maxResidentRows),
		Failed:      make(map[string]error),
	}
}

// Add enqueues row under key, flushing the partition synchronously if
// it has reached batchSize.
func (b *Batcher[T]) Add(key PartitionKey, row T) error {
	b.sem <- struct{}{} // blocks when at the memory ceiling

	b.mu.Lock()
	id := key.id()
	b.buffers[id] = append(b.buffers[id], row)
	full := len(b.buffers[id]) >= b.batchSize
	b.mu.Unlock()

	if full {
		return b.Flush(key)
	}
	return nil
}

// Flush writes and clears key's current buffer, if non-empty. Safe to
// call concurrently for different keys; flushes of the same key
// serialize via that partition's mutex (spec.md §5).
func (b *Batcher[T]) Flush(key PartitionKey) error {
	id := key.id()

	b.mu.Lock()
	rows := b.buffers[id]
	b.buffers[id] = nil
	n := len(rows)
	b.mu.Unlock()

	if n == 0 {
		return nil
	}
	for range rows {
		<-b.sem
	}

	pmu := b.partitionMutex(id)
	pmu.Lock()
	defer pmu.Unlock()

	b.mu.Lock()
	partNum := b.partNums[id]
	b.partNums[id] = partNum + 1
	b.mu.Unlock()

	// The write is attempted up to 3 times before the partition is
	// marked failed.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = writePartitionFile[T](b.root, key, rows, partNum, b.compression); err == nil {
			return nil
		}
	}
	b.mu.Lock()
	b.Failed[id] = err
	b.mu.Unlock()
	return err
}

// FailedPartitions lists the partition ids whose flush failed
// persistently at any point in the run (spec.md §7 WriteError), for
// the manifest.
func (b *Batcher[T]) FailedPartitions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.Failed))
	for id := range b.Failed {
		ids = append(ids, id)
	}
	return ids
}

func (b *Batcher[T]) partitionMutex(id string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	pmu, ok := b.pmus[id]
	if !ok {
		pmu = &sync.Mutex{}
		b.pmus[id] = pmu
	}
	return pmu
}

// FlushAll flushes every partition with a non-empty buffer, called at
// pipeline FINALIZE.
func (b *Batcher[T]) FlushAll() error {
	b.mu.Lock()
	keys := make([]string, 0, len(b.buffers))
	for id, rows := range b.buffers {
		if len(rows) > 0 {
			keys = append(keys, id)
		}
	}
	b.mu.Unlock()

	var firstErr error
	for _, id := range keys {
		key := parseID(id)
		if err := b.Flush(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// parseID recovers a PartitionKey from the "entity|payer|date" string
// id() produced, relying on id()'s fixed field count.
func parseID(id string) PartitionKey {
	fields := [3]string{}
	idx, start := 0, 0
	for i := 0; i < len(id) && idx < 2; i++ {
		if id[i] == '|' {
			fields[idx] = id[start:i]
			idx++
			start = i + 1
		}
	}
	fields[2] = id[start:]
	return PartitionKey{Entity: fields[0], Payer: fields[1], Date: fields[2]}
}

// writePartitionFile writes rows to
// <root>/<entity>/payer=<payer>/date=<date>/part-NNNN.parquet,
// creating it at a temp path and renaming into place so a flush is
// atomic at the file level (spec.md §4.7).
func writePartitionFile[T any](root string, key PartitionKey, rows []T, partNum int, compression string) error {
	dir := key.dir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	final := filepath.Join(dir, fmt.Sprintf("part-%04d.parquet", partNum))
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := parquet.NewGenericWriter[T](f, parquet.Compression(codecFor(compression)))
	if _, err := w.Write(rows); err != nil {
		w.Close()
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, final, err)
	}
	return nil
}

// Manifest is the end-of-run processing_statistics document (spec.md
// §4.7, §6).
type Manifest struct {
	Payer                string    `json:"payer"`
	RunDate              string    `json:"run_date"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
	FilesProcessed       int       `json:"files_processed"`
	FilesFailed          int       `json:"files_failed"`
	RatesAdmitted        int64     `json:"rates_admitted"`
	RejectedCompleteness int64     `json:"rejected_completeness"`
	RejectedAccuracy     int64     `json:"rejected_accuracy"`
	RejectedWhitelist    int64     `json:"rejected_whitelist"`
	RejectedBounds       int64     `json:"rejected_bounds"`
	Truncated            bool      `json:"truncated"`
	TruncationReason     string    `json:"truncation_reason,omitempty"`
	FailedPartitions     []string  `json:"failed_partitions,omitempty"`
}

// WriteManifest emits m to
// <root>/processing_statistics/<date>/<payer>.json, atomically.
func WriteManifest(root string, m Manifest) error {
	dir := filepath.Join(root, "processing_statistics", m.RunDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	final := filepath.Join(dir, m.Payer+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, final, err)
	}
	return nil
}
