// Package errs defines the engine-wide error taxonomy (spec.md §7).
package errs

import "fmt"

// FetchError distinguishes transient (retry) from permanent (skip) fetch
// failures.
type FetchError struct {
	URL       string
	Permanent bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError carries the byte offset at which parsing failed, so the
// Orchestrator can skip the offending file without aborting the payer.
type ParseError struct {
	URL    string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s at offset %d: %v", e.URL, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// HandlerError is treated as a ParseError but tags the payer identifier
// that produced it.
type HandlerError struct {
	Payer string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.Payer, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// WriteError marks a partition write failure. The Batcher attempts a
// partition write up to 3 times; if it still fails, the partition is
// marked failed and the run continues with other partitions.
type WriteError struct {
	Partition string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Partition, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// BudgetExceeded is not an error in the propagation sense — it triggers
// graceful truncation, never a failure exit code.
type BudgetExceeded struct {
	Reason string
}

func (e *BudgetExceeded) Error() string {
	return "budget exceeded: " + e.Reason
}
