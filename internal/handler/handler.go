// Package handler implements the per-payer adapter registry (spec.md
// §4.3).
//
// Grounded on _examples/original_source/src/tic_mrf_scraper/payers/
// __init__.py's register_handler decorator + get_handler lookup,
// reimplemented as an init()-time Register call per payer package —
// the idiomatic Go analogue of a class-registration decorator.
package handler

import (
	"strings"
	"sync"

	"github.com/chrscato/bph-tic/internal/model"
)

// Handler is the capability set a payer adapter may satisfy. ParseInNetwork
// is required (the default handler's is the identity function);
// PreprocessTOC is optional: a handler that needs TOC massaging
// additionally implements TOCPreprocessor.
type Handler interface {
	// ParseInNetwork normalizes a raw in-network item into zero or more
	// raw items before the Normalizer resolves it into Rate tuples.
	ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem

	// Name identifies the handler for logging.
	Name() string
}

// TOCPreprocessor is an optional capability a Handler may additionally
// implement to massage a TOC file entry before it is enqueued.
type TOCPreprocessor interface {
	PreprocessTOC(model.TOCFile) model.TOCFile
}

// Default is the identity handler used for any payer identifier with no
// registered override.
type Default struct{}

func (Default) Name() string { return "default" }

func (Default) ParseInNetwork(item model.RawInNetworkItem) []model.RawInNetworkItem {
	return []model.RawInNetworkItem{item}
}

var (
	mu       sync.RWMutex
	registry = map[string]Handler{}
)

// Register associates name (case-insensitive) with h. Intended to be
// called from a payer package's init() function, mirroring the
// original's decorator-time registration. The registry is read-only
// after process startup (spec.md §5).
func Register(name string, h Handler) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = h
}

// Get returns the handler registered for name, or Default{} if none is
// registered — "unknown identifiers resolve to the default handler"
// (spec.md §4.3).
func Get(name string) Handler {
	mu.RLock()
	defer mu.RUnlock()
	if h, ok := registry[strings.ToLower(name)]; ok {
		return h
	}
	return Default{}
}

// Names returns every registered payer identifier, for discovery
// (spec.md §4.3: "additional handlers are loaded via a discovery
// mechanism that enumerates available handler implementations by
// name").
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
