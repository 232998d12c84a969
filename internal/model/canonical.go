package model

import "time"

// BillingCodeType enumerates the recognized code vocabularies (spec.md §3).
type BillingCodeType string

const (
	BillingCodeCPT    BillingCodeType = "CPT"
	BillingCodeHCPCS  BillingCodeType = "HCPCS"
	BillingCodeICD    BillingCodeType = "ICD"
	BillingCodeMSDRG  BillingCodeType = "MS-DRG"
	BillingCodeLOCAL  BillingCodeType = "LOCAL"
	BillingCodeCustom BillingCodeType = "CUSTOM"
)

// KnownBillingCodeTypes is the recognized set for filtering rule (3) in
// the Normalizer (spec.md §4.4).
var KnownBillingCodeTypes = map[BillingCodeType]bool{
	BillingCodeCPT:    true,
	BillingCodeHCPCS:  true,
	BillingCodeICD:    true,
	BillingCodeMSDRG:  true,
	BillingCodeLOCAL:  true,
	BillingCodeCustom: true,
}

// Payer is the one-per-configured-endpoint record (spec.md §3).
type Payer struct {
	PayerUUID    string    `parquet:"payer_uuid"`
	Name         string    `parquet:"name"`
	PayerType    string    `parquet:"payer_type"`
	MarketType   string    `parquet:"market_type"`
	IndexURL     string    `parquet:"index_url"`
	LastScraped  time.Time `parquet:"last_scraped"`
}

// Organization is keyed by TIN only; multiple NPIs map to one organization.
type Organization struct {
	OrganizationUUID   string  `parquet:"organization_uuid"`
	TIN                string  `parquet:"tin"`
	OrganizationName   string  `parquet:"organization_name,optional"`
	NPICount           int32   `parquet:"npi_count"`
	IsFacility         bool    `parquet:"is_facility"`
	DataQualityScore   float64 `parquet:"data_quality_score"`
	CreatedAt          time.Time `parquet:"created_at"`
}

// Provider is keyed by NPI only; the sole natural key.
type Provider struct {
	ProviderUUID        string    `parquet:"provider_uuid"`
	NPI                 string    `parquet:"npi"`
	OrganizationUUID    string    `parquet:"organization_uuid"`
	Specialties         []string  `parquet:"specialties,list,optional"`
	Addresses           []string  `parquet:"addresses,list,optional"`
	Longitude           *float64  `parquet:"longitude,optional"`
	Latitude            *float64  `parquet:"latitude,optional"`
	PracticeLocationWKT string    `parquet:"practice_location_wkt,optional"`
	IsActive            bool      `parquet:"is_active"`
	CreatedAt           time.Time `parquet:"created_at"`
}

// PlanDetails denormalizes the originating plan for a Rate.
type PlanDetails struct {
	PlanName   string `json:"plan_name"`
	PlanID     string `json:"plan_id"`
	PlanType   string `json:"plan_type"`
	MarketType string `json:"market_type"`
}

// ContractPeriod denormalizes effective/expiration dates for a Rate.
type ContractPeriod struct {
	EffectiveDate  string `json:"effective_date,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	LastUpdatedOn  string `json:"last_updated_on,omitempty"`
}

// DataLineage traces a Rate back to its source file.
type DataLineage struct {
	SourceFileURL         string    `json:"source_file_url"`
	SourceFileHash        string    `json:"source_file_hash"`
	ExtractionTimestamp   time.Time `json:"extraction_timestamp"`
	ProcessingVersion     string    `json:"processing_version"`
}

// GeographicScope denormalizes service geography for Analytics grouping.
type GeographicScope struct {
	States   []string `json:"states,omitempty"`
	ZipCodes []string `json:"zip_codes,omitempty"`
	Counties []string `json:"counties,omitempty"`
}

// Rate is the canonical negotiated-rate tuple. rate_uuid determinism is
// the central correctness property of the engine (spec.md §3, §8).
type Rate struct {
	RateUUID              string  `parquet:"rate_uuid"`
	PayerUUID             string  `parquet:"payer_uuid"`
	OrganizationUUID      string  `parquet:"organization_uuid"`
	ServiceCode           string  `parquet:"service_code"`
	ServiceDescription    string  `parquet:"service_description,optional"`
	BillingCodeType       string  `parquet:"billing_code_type"`
	NegotiatedRate        float64 `parquet:"negotiated_rate"`
	BillingClass          string  `parquet:"billing_class"`
	RateType              string  `parquet:"rate_type"`
	ServiceCodes          []string `parquet:"service_codes,list,optional"`
	PlanDetailsJSON        string  `parquet:"plan_details_json,optional"`
	ContractPeriodJSON     string  `parquet:"contract_period_json,optional"`
	DataLineageJSON        string  `parquet:"data_lineage_json,optional"`
	GeographicScopeJSON    string  `parquet:"geographic_scope_json,optional"`
	NPIList               []string `parquet:"npi_list,list,optional"`
	CreatedAt             time.Time `parquet:"created_at"`
}

// Analytics is aggregated per (service_code, geographic_scope) at the end
// of a run.
type Analytics struct {
	ServiceCode       string  `parquet:"service_code"`
	GeographicScope   string  `parquet:"geographic_scope"`
	PayerName         string  `parquet:"payer_name"`
	RateCount         int64   `parquet:"rate_count"`
	MinRate           float64 `parquet:"min_rate"`
	MaxRate           float64 `parquet:"max_rate"`
	MeanRate          float64 `parquet:"mean_rate"`
	OrganizationCount int64   `parquet:"organization_count"`
	CreatedAt         time.Time `parquet:"created_at"`
}
