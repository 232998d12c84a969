// Package model defines the raw payer-side shapes and the canonical
// entities the engine normalizes them into.
package model

import "encoding/json"

// RawInNetworkItem is a single in_network array element, payer-specific.
// Grounded on in_network/types.go (the teacher's InNetworkItem) and
// spec.md §3's RawInNetworkItem contract.
type RawInNetworkItem struct {
	NegotiationArrangement string            `json:"negotiation_arrangement"`
	Name                   string            `json:"name"`
	BillingCode            string            `json:"billing_code"`
	BillingCodeType        string            `json:"billing_code_type"`
	BillingCodeTypeVersion string            `json:"billing_code_type_version"`
	Description            string            `json:"description"`
	NegotiatedRates         []RawNegotiatedRate `json:"negotiated_rates"`
	BundledCodes           []RawContainedCode `json:"bundled_codes,omitempty"`
	CoveredServices        []RawContainedCode `json:"covered_services,omitempty"`
}

// RawNegotiatedRate groups negotiated prices with provider references or
// inline provider groups.
type RawNegotiatedRate struct {
	ProviderReferences []int               `json:"provider_references,omitempty"`
	ProviderGroups     []RawProviderGroup  `json:"provider_groups,omitempty"`
	NegotiatedPrices   []RawNegotiatedPrice `json:"negotiated_prices"`
}

// RawNegotiatedPrice is a single negotiated price entry.
type RawNegotiatedPrice struct {
	NegotiatedType      string           `json:"negotiated_type"`
	NegotiatedRate      FlexFloat        `json:"negotiated_rate"`
	BillingClass        string           `json:"billing_class"`
	Setting             string           `json:"setting,omitempty"`
	ExpirationDate      string           `json:"expiration_date"`
	ServiceCode         FlexStringList   `json:"service_code"`
	BillingCodeModifier FlexStringList   `json:"billing_code_modifier,omitempty"`
	GeographicRegion    string           `json:"geographic_region,omitempty"`
	ServiceGeography    *ServiceGeography `json:"service_geography,omitempty"`
}

// ServiceGeography is the parsed form of a payer-specific geographic
// region code, e.g. Horizon's "NJ_NORTH". Populated by a handler's
// ParseInNetwork, not present in any payer's raw wire format.
type ServiceGeography struct {
	State    string `json:"state"`
	Region   string `json:"region"`
	FullCode string `json:"full_code"`
}

// RawProviderGroup is an inline {npi[], tin} provider group.
type RawProviderGroup struct {
	NPI []FlexNPI `json:"npi"`
	TIN RawTIN    `json:"tin"`
}

// RawTIN is a tax-identification-number descriptor. Most payers emit
// it as {"type":"ein","value":"..."}; some (per
// _examples/original_source/.../payers/aetna.py
// _normalize_aetna_provider_group and payers/horizon.py
// _normalize_horizon_provider_groups) emit a bare TIN string instead,
// which UnmarshalJSON coerces into the object form.
type RawTIN struct {
	Type         string `json:"type"`
	Value        string `json:"value"`
	BusinessName string `json:"business_name,omitempty"`
}

// UnmarshalJSON accepts both `{"type":"ein","value":"123456789"}` and a
// bare `"123456789"`, defaulting the latter's Type to "ein".
func (t *RawTIN) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Type = "ein"
		t.Value = s
		return nil
	}

	var obj struct {
		Type         string `json:"type"`
		Value        string `json:"value"`
		BusinessName string `json:"business_name,omitempty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Type = obj.Type
	t.Value = obj.Value
	t.BusinessName = obj.BusinessName
	return nil
}

// RawContainedCode appears in bundled_codes and covered_services.
type RawContainedCode struct {
	BillingCodeType        string `json:"billing_code_type"`
	BillingCodeTypeVersion string `json:"billing_code_type_version"`
	BillingCode            string `json:"billing_code"`
	Description            string `json:"description"`
}

// RawProviderReference is a top-level deferred provider_references entry.
type RawProviderReference struct {
	ProviderGroupID int                `json:"provider_group_id"`
	NetworkName     []string           `json:"network_name,omitempty"`
	ProviderGroups  []RawProviderGroup `json:"provider_groups"`
}

// RawTOCRoot covers the standard_toc shape (reporting_structure[]).
type RawTOCRoot struct {
	ReportingEntityName string                `json:"reporting_entity_name"`
	ReportingEntityType string                `json:"reporting_entity_type"`
	LastUpdatedOn        string                `json:"last_updated_on"`
	Version              string                `json:"version"`
	ReportingStructure   []RawReportingStructure `json:"reporting_structure,omitempty"`
	Blobs                []RawBlob             `json:"blobs,omitempty"`
	InNetworkFiles       []RawFileLocation     `json:"in_network_files,omitempty"`
}

// RawReportingStructure maps plans to their in-network/allowed-amount files.
type RawReportingStructure struct {
	ReportingPlans      []RawReportingPlan      `json:"reporting_plans,omitempty"`
	InNetworkFiles      []RawFileLocation       `json:"in_network_files,omitempty"`
	AllowedAmountFile   *RawFileLocation        `json:"allowed_amount_file,omitempty"`
	ProviderReferences  []RawFileLocation       `json:"provider_references,omitempty"`
}

// RawReportingPlan carries plan identity for a reporting structure.
type RawReportingPlan struct {
	PlanName        string `json:"plan_name"`
	IssuerName      string `json:"issuer_name"`
	PlanIDType      string `json:"plan_id_type"`
	PlanID          string `json:"plan_id"`
	PlanSponsorName string `json:"plan_sponsor_name,omitempty"`
	PlanMarketType  string `json:"plan_market_type"`
}

// RawFileLocation describes an in-network or allowed-amount file pointer.
type RawFileLocation struct {
	Description string `json:"description"`
	Location    string `json:"location"`
}

// RawBlob is a legacy_blobs TOC entry.
type RawBlob struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// TOCFile describes one enumerated in-network file and its plan context,
// as yielded by the Stream Parser's iterateToc.
type TOCFile struct {
	PlanName            string
	PlanID              string
	PlanMarketType      string
	IssuerName          string
	Description         string
	InNetworkFileURL    string
	AllowedAmountFileURL string
	ProviderReferenceURL string
}
