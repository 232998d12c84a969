package providerref

import (
	"testing"

	"github.com/chrscato/bph-tic/internal/model"
)

func TestLookupResolvesAddedReference(t *testing.T) {
	table := NewTable()
	groups := []model.RawProviderGroup{
		{NPI: []model.FlexNPI{"1234567893"}, TIN: model.RawTIN{Value: "12-3456789"}},
	}
	table.Add(model.RawProviderReference{ProviderGroupID: 7, ProviderGroups: groups})

	got, ok := table.Lookup(7)
	if !ok {
		t.Fatal("expected Lookup(7) to resolve")
	}
	if len(got) != 1 || got[0].TIN.Value != "12-3456789" {
		t.Errorf("Lookup(7) = %+v, want %+v", got, groups)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestLookupUnknownGroupIDReturnsFalse(t *testing.T) {
	table := NewTable()
	if _, ok := table.Lookup(99); ok {
		t.Error("expected Lookup of an undeclared group ID to return ok=false")
	}
}
