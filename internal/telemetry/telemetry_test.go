package telemetry

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestFileDoneAccumulates(t *testing.T) {
	p := New(zaptest.NewLogger(t), "acme", 3)

	p.FileDone(100)
	p.FileDone(50)

	if got := p.RecordsProcessed(); got != 150 {
		t.Errorf("RecordsProcessed() = %d, want 150", got)
	}
	if got := p.FilesCompleted(); got != 2 {
		t.Errorf("FilesCompleted() = %d, want 2", got)
	}
}

func TestNPIMismatchDoesNotPanic(t *testing.T) {
	p := New(zaptest.NewLogger(t), "acme", 0)
	p.NPIMismatch("1234567893")
}
