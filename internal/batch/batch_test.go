package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chrscato/bph-tic/internal/model"
)

func TestAddFlushesAtBatchSize(t *testing.T) {
	root := t.TempDir()
	b := New[model.Organization](root, 2, 0, "")
	key := PartitionKey{Entity: "organizations", Payer: "acme", Date: "2026-08-03"}

	if err := b.Add(key, model.Organization{OrganizationUUID: "1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := os.Stat(key.dir(root)); err == nil {
		t.Fatal("expected no partition file before batchSize rows are buffered")
	}

	if err := b.Add(key, model.Organization{OrganizationUUID: "2"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := os.ReadDir(key.dir(root))
	if err != nil {
		t.Fatalf("expected the partition directory to exist after reaching batchSize: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 part file, got %d", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".parquet" {
		t.Errorf("expected a .parquet file, got %s", entries[0].Name())
	}
}

func TestFlushAllWritesPartialBuffer(t *testing.T) {
	root := t.TempDir()
	b := New[model.Organization](root, 100, 0, "")
	key := PartitionKey{Entity: "organizations", Payer: "acme", Date: "2026-08-03"}

	if err := b.Add(key, model.Organization{OrganizationUUID: "1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	entries, err := os.ReadDir(key.dir(root))
	if err != nil {
		t.Fatalf("expected the partition directory to exist after FlushAll: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 part file, got %d", len(entries))
	}
}

func TestFlushLeavesNoTempFileBehind(t *testing.T) {
	root := t.TempDir()
	b := New[model.Organization](root, 1, 0, "")
	key := PartitionKey{Entity: "organizations", Payer: "acme", Date: "2026-08-03"}

	if err := b.Add(key, model.Organization{OrganizationUUID: "1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := os.ReadDir(key.dir(root))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("found leftover temp file %s after a successful flush", e.Name())
		}
	}
}

func TestSeparatePartitionsDoNotInterfere(t *testing.T) {
	root := t.TempDir()
	b := New[model.Organization](root, 1, 0, "")
	keyA := PartitionKey{Entity: "organizations", Payer: "acme", Date: "2026-08-03"}
	keyB := PartitionKey{Entity: "organizations", Payer: "other", Date: "2026-08-03"}

	if err := b.Add(keyA, model.Organization{OrganizationUUID: "1"}); err != nil {
		t.Fatalf("Add keyA: %v", err)
	}
	if err := b.Add(keyB, model.Organization{OrganizationUUID: "2"}); err != nil {
		t.Fatalf("Add keyB: %v", err)
	}

	for _, key := range []PartitionKey{keyA, keyB} {
		entries, err := os.ReadDir(key.dir(root))
		if err != nil {
			t.Fatalf("ReadDir %s: %v", key.dir(root), err)
		}
		if len(entries) != 1 {
			t.Errorf("partition %s: expected 1 part file, got %d", key.id(), len(entries))
		}
	}
}

func TestParseIDRoundTrips(t *testing.T) {
	key := PartitionKey{Entity: "rates", Payer: "some-payer", Date: "2026-08-03"}
	got := parseID(key.id())
	if got != key {
		t.Errorf("parseID(%q) = %+v, want %+v", key.id(), got, key)
	}
}

func TestWriteManifestAtomicRename(t *testing.T) {
	root := t.TempDir()
	m := Manifest{Payer: "acme", RunDate: "2026-08-03", RatesAdmitted: 5}
	if err := WriteManifest(root, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	path := filepath.Join(root, "processing_statistics", "2026-08-03", "acme.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected manifest at %s: %v", path, err)
	}
	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Error("expected no leftover .tmp manifest file")
	}
}
