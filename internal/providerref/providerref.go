// Package providerref resolves deferred provider_references into the
// provider groups they point at.
//
// Grounded on the teacher's in_network/stream.go (matchedGroupIDs +
// streamProviderReferences) and on spec.md §4.9's two-pass design note:
// "a two-pass read of the same file ... producing a group_id → group map
// held in memory for that file only."
package providerref

import (
	"github.com/chrscato/bph-tic/internal/model"
)

// Table maps a provider_group_id to the provider groups it resolves to,
// scoped to a single in-network file.
type Table struct {
	groups map[int][]model.RawProviderGroup
}

// NewTable builds an empty, file-scoped resolution table.
func NewTable() *Table {
	return &Table{groups: make(map[int][]model.RawProviderGroup)}
}

// Add records one top-level provider_references entry, as observed
// during the first pass over the file.
func (t *Table) Add(ref model.RawProviderReference) {
	t.groups[ref.ProviderGroupID] = ref.ProviderGroups
}

// Lookup resolves a provider_group_id to its provider groups. ok is
// false when the file's items reference a group ID never declared in
// provider_references — a malformed-but-survivable condition the
// Normalizer must tolerate without aborting the file.
func (t *Table) Lookup(groupID int) ([]model.RawProviderGroup, bool) {
	groups, ok := t.groups[groupID]
	return groups, ok
}

// Len reports how many provider groups are known, for diagnostics.
func (t *Table) Len() int { return len(t.groups) }
