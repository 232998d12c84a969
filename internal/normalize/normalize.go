// Package normalize implements the Normalizer (spec.md §4.4): it turns
// a payer-specific RawInNetworkItem into zero or more canonical Rate
// tuples, deriving the Organization and Provider entities each Rate
// references along the way.
//
// Grounded on the teacher's in_network/stream.go (matchedGroupIDs,
// the provider-group-to-Rate fan-out loop) and on
// _examples/original_source/src/tic_mrf_scraper/stream/parser.py's
// parse_negotiated_rates, which resolves provider_references vs inline
// provider_groups before emitting one record per negotiated_price ×
// service_code — the same cartesian product spec.md §4.4 requires.
package normalize

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chrscato/bph-tic/internal/identity"
	"github.com/chrscato/bph-tic/internal/model"
	"github.com/chrscato/bph-tic/internal/providerref"
	"github.com/chrscato/bph-tic/internal/quality"
	"github.com/chrscato/bph-tic/pkg/npi"
)

// Bounds is the global rate-admission window plus optional per-code
// ceilings, taken from config.QualityRules (spec.md §4.4 rule 2).
type Bounds struct {
	MinRate         float64
	MaxRate         float64
	PerCodeCeilings map[string]float64
}

func (b Bounds) withinGlobal(rate float64) bool {
	if b.MinRate > 0 && rate < b.MinRate {
		return false
	}
	if b.MaxRate > 0 && rate > b.MaxRate {
		return false
	}
	return true
}

func (b Bounds) withinCeiling(billingCode string, rate float64) bool {
	if b.PerCodeCeilings == nil {
		return true
	}
	ceiling, ok := b.PerCodeCeilings[billingCode]
	if !ok {
		return true
	}
	return rate <= ceiling
}

// processingVersion tags every DataLineage this build produces.
const processingVersion = "1"

func marshalOrEmpty(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func contractPeriodJSON(root RootMeta, expirationDate string) string {
	return marshalOrEmpty(model.ContractPeriod{
		ExpirationDate: expirationDate,
		LastUpdatedOn:  root.LastUpdatedOn,
	})
}

func geographicScopeJSON(sg *model.ServiceGeography) string {
	if sg == nil {
		return ""
	}
	return marshalOrEmpty(model.GeographicScope{States: []string{sg.State}})
}

// Counters tracks rejections the Normalizer applies before a row reaches
// the Quality Gate's Admit (spec.md §4.4's rules 1 and 3). A whitelist
// miss is also counted on the Gate via RejectWhitelist; a rule 2 bounds
// reject is counted only on the Gate, via RejectBounds.
type Counters struct {
	RejectedWhitelist        int64
	RejectedUnrecognizedType int64
}

// Normalizer holds one payer pipeline's run-scoped state: its entity
// dedup indexes (spec.md §3, "deduplicating in-memory index ...
// scoped to a single pipeline run") and admission rules.
type Normalizer struct {
	PayerUUID string
	PayerName string

	Whitelist map[string]bool // nil disables the whitelist filter
	Bounds    Bounds
	Gate      *quality.Gate
	Allowlist map[string]bool // optional NPI allowlist; nil disables it

	orgs      map[string]*model.Organization // TIN -> Organization
	providers map[string]*model.Provider     // NPI -> Provider
	seenRates map[string]bool                // rate_uuid -> seen, for invariant 3

	Counters Counters
}

// New builds a Normalizer for one payer pipeline run.
func New(payerUUID, payerName string, whitelist []string, bounds Bounds, gate *quality.Gate, allowlist map[string]bool) *Normalizer {
	var wl map[string]bool
	if len(whitelist) > 0 {
		wl = make(map[string]bool, len(whitelist))
		for _, code := range whitelist {
			wl[code] = true
		}
	}
	return &Normalizer{
		PayerUUID: payerUUID,
		PayerName: payerName,
		Whitelist: wl,
		Bounds:    bounds,
		Gate:      gate,
		Allowlist: allowlist,
		orgs:      make(map[string]*model.Organization),
		providers: make(map[string]*model.Provider),
		seenRates: make(map[string]bool),
	}
}

// RootMeta is the subset of stream.RootMeta the Normalizer denormalizes
// onto every Rate it emits from one in-network file.
type RootMeta struct {
	PlanName       string
	PlanID         string
	PlanMarketType string
	LastUpdatedOn  string
	SourceFileURL  string
}

// Result carries one RawInNetworkItem's normalization output: the
// admitted Rates plus any Organization/Provider entities seen for the
// first time in this pipeline run (spec.md §3: "Organizations and
// providers are never updated in-place after first emit within a
// run").
type Result struct {
	Rates          []model.Rate
	NewOrgs        []model.Organization
	NewProviders   []model.Provider
	NPIMismatches  []string // NPIs seen under a second, different organization
}

// Normalize resolves item's negotiated_rate blocks, derives entities,
// and emits admitted Rate tuples. refs may be nil when the file has no
// deferred provider_references.
func (n *Normalizer) Normalize(item model.RawInNetworkItem, refs *providerref.Table, root RootMeta) Result {
	var res Result

	if n.Whitelist != nil && !n.Whitelist[item.BillingCode] {
		n.Counters.RejectedWhitelist++
		n.Gate.RejectWhitelist(n.PayerName)
		return res
	}
	if !model.KnownBillingCodeTypes[model.BillingCodeType(item.BillingCodeType)] {
		n.Counters.RejectedUnrecognizedType++
		return res
	}

	planFingerprint := strings.ToLower(strings.Join([]string{root.PlanID, root.PlanName, root.PlanMarketType}, "|"))

	planDetailsJSON := marshalOrEmpty(model.PlanDetails{
		PlanName:   root.PlanName,
		PlanID:     root.PlanID,
		MarketType: root.PlanMarketType,
	})
	lineageJSON := marshalOrEmpty(model.DataLineage{
		SourceFileURL:       root.SourceFileURL,
		ExtractionTimestamp: time.Now().UTC(),
		ProcessingVersion:   processingVersion,
	})

	for _, rate := range item.NegotiatedRates {
		groups := n.resolveGroups(rate, refs)
		if len(groups) == 0 {
			continue
		}

		for _, group := range groups {
			npis := groupNPIs(group)
			org, isNewOrg := n.resolveOrganization(group.TIN, len(npis))
			if isNewOrg {
				res.NewOrgs = append(res.NewOrgs, *org)
			}
			for _, npiStr := range npis {
				if n.Allowlist != nil && !n.Allowlist[npiStr] {
					continue
				}
				provider, isNew, mismatched := n.resolveProvider(npiStr, org.OrganizationUUID)
				if isNew {
					res.NewProviders = append(res.NewProviders, *provider)
				}
				if mismatched {
					res.NPIMismatches = append(res.NPIMismatches, npiStr)
				}
			}

			for _, price := range rate.NegotiatedPrices {
				negotiatedRate := price.NegotiatedRate.Float64()
				if !n.Bounds.withinGlobal(negotiatedRate) || !n.Bounds.withinCeiling(item.BillingCode, negotiatedRate) {
					n.Gate.RejectBounds(n.PayerName)
					continue
				}

				for _, serviceCode := range price.ServiceCode {
					rateUUID := identity.RateUUID(
						n.PayerUUID, org.OrganizationUUID, serviceCode, item.BillingCodeType,
						negotiatedRate, price.BillingClass, price.NegotiatedType, planFingerprint,
					)
					if n.seenRates[rateUUID] {
						continue
					}

					candidate := quality.Candidate{
						ServiceCode:      serviceCode,
						BillingCodeType:  item.BillingCodeType,
						NegotiatedRate:   negotiatedRate,
						BillingClass:     price.BillingClass,
						PayerUUID:        n.PayerUUID,
						OrganizationUUID: org.OrganizationUUID,
						TIN:              group.TIN.Value,
						NPIs:             npis,
						MinRate:          n.Bounds.MinRate,
						MaxRate:          n.Bounds.MaxRate,
					}
					if !n.Gate.Admit(n.PayerName, candidate) {
						continue
					}

					n.seenRates[rateUUID] = true
					res.Rates = append(res.Rates, model.Rate{
						RateUUID:            rateUUID,
						PayerUUID:           n.PayerUUID,
						OrganizationUUID:    org.OrganizationUUID,
						ServiceCode:         serviceCode,
						ServiceDescription:  item.Description,
						BillingCodeType:     item.BillingCodeType,
						NegotiatedRate:      negotiatedRate,
						BillingClass:        price.BillingClass,
						RateType:            price.NegotiatedType,
						ServiceCodes:        price.ServiceCode,
						PlanDetailsJSON:     planDetailsJSON,
						ContractPeriodJSON:  contractPeriodJSON(root, price.ExpirationDate),
						DataLineageJSON:     lineageJSON,
						GeographicScopeJSON: geographicScopeJSON(price.ServiceGeography),
						NPIList:             npis,
						CreatedAt:           time.Now().UTC(),
					})
				}
			}
		}
	}
	return res
}

// resolveGroups resolves each provider_group_id through refs when rate
// cites provider_references and refs is non-nil; otherwise it returns
// the inline provider_groups (spec.md §4.4: "if provider_references
// present, look up group(s); else use inline provider_groups").
func (n *Normalizer) resolveGroups(rate model.RawNegotiatedRate, refs *providerref.Table) []model.RawProviderGroup {
	if refs == nil || len(rate.ProviderReferences) == 0 {
		return rate.ProviderGroups
	}
	var groups []model.RawProviderGroup
	for _, id := range rate.ProviderReferences {
		if resolved, ok := refs.Lookup(id); ok {
			groups = append(groups, resolved...)
		}
	}
	return groups
}

func groupNPIs(group model.RawProviderGroup) []string {
	npis := make([]string, 0, len(group.NPI))
	for _, n := range group.NPI {
		npis = append(npis, n.String())
	}
	return npis
}

// resolveOrganization returns the Organization for tin, creating and
// memoizing it on first sight (spec.md §3: "Keyed by TIN only").
func (n *Normalizer) resolveOrganization(tin model.RawTIN, npiCount int) (*model.Organization, bool) {
	if org, ok := n.orgs[tin.Value]; ok {
		return org, false
	}
	org := &model.Organization{
		OrganizationUUID: identity.OrganizationUUID(tin.Value),
		TIN:              tin.Value,
		OrganizationName: tin.BusinessName,
		NPICount:         int32(npiCount),
		IsFacility:       tin.Type == "ein" && npiCount > 1,
		DataQualityScore: 1.0,
		CreatedAt:        time.Now().UTC(),
	}
	n.orgs[tin.Value] = org
	return org, true
}

// resolveProvider returns the Provider for npiStr, creating and
// memoizing it on first sight. Per the duplicate-NPI collision policy
// (SPEC_FULL.md §9), a Provider row once emitted for an NPI is never
// re-emitted even if a later file attaches that NPI to a different
// organization; Mismatched reports this so the caller can log it.
func (n *Normalizer) resolveProvider(npiStr, organizationUUID string) (provider *model.Provider, isNew, mismatched bool) {
	if existing, ok := n.providers[npiStr]; ok {
		return existing, false, existing.OrganizationUUID != organizationUUID
	}
	provider = &model.Provider{
		ProviderUUID:     identity.ProviderUUID(npiStr),
		NPI:              npiStr,
		OrganizationUUID: organizationUUID,
		IsActive:         true,
		CreatedAt:        time.Now().UTC(),
	}
	provider.ApplyPracticeLocationWKT()
	n.providers[npiStr] = provider
	return provider, true, false
}

// ValidNPI reports whether npiStr is a well-formed, Luhn-valid NPI
// (spec.md §8 invariant 4). Exposed for callers that need to flag a
// Provider without rejecting its Rate.
func ValidNPI(npiStr string) bool {
	return npi.Valid(npiStr)
}

type npiEntry struct {
	NPI string `json:"npi"`
}

// LoadAllowlist reads the configured npi_allowlist_file — a JSON array
// of {"npi": "..."} entries — into a lookup set. Grounded on the
// teacher's in_network/npi_filter.go's LoadNPIFilter, adapted to key
// by string NPI (matching FlexNPI's canonical representation) instead
// of int64.
func LoadAllowlist(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read NPI allowlist: %w", err)
	}
	var entries []npiEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse NPI allowlist: %w", err)
	}
	allow := make(map[string]bool, len(entries))
	for _, e := range entries {
		allow[e.NPI] = true
	}
	return allow, nil
}
