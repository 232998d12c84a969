// Package identity derives deterministic UUIDs for canonical entities.
//
// Grounded on _examples/original_source/production_etl_pipeline.py's
// UUIDGenerator: a fixed project namespace, a per-category sub-namespace
// hashed under it, and UUIDv5 over "|"-joined lowercase components. Here
// the two hashing steps collapse into github.com/google/uuid's
// NewSHA1 (UUIDv5), which is the idiomatic Go equivalent of Python's
// uuid.uuid5.
package identity

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ProjectNamespace is the fixed 16-byte namespace constant documented by
// spec.md §6 ("Identity namespace: a fixed UUID constant ... applied to
// all UUIDv5 derivations"). The value is arbitrary but frozen here for
// cross-run stability: changing it changes every derived UUID.
var ProjectNamespace = uuid.MustParse("7b4b6a3e-7c9b-5a2e-9b3a-6b9b3a6b9b3a")

const (
	categoryPayers        = "payers"
	categoryOrganizations = "organizations"
	categoryProviders     = "providers"
	categoryRates         = "rates"
)

// categoryNamespace derives the per-category sub-namespace the original
// hashed as uuid5(NAMESPACE_DNS, "healthcare."+category).
func categoryNamespace(category string) uuid.UUID {
	return uuid.NewSHA1(ProjectNamespace, []byte(category))
}

// canonicalize lowercases and joins components with "|", matching the
// original's `"|".join(str(c) for c in components)` after normalizing to
// lowercase UTF-8 per spec.md §4.5.
func canonicalize(components ...string) []byte {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return []byte(strings.Join(parts, "|"))
}

func derive(category string, components ...string) string {
	ns := categoryNamespace(category)
	return uuid.NewSHA1(ns, canonicalize(components...)).String()
}

// PayerUUID derives a Payer's identity from its configured name.
func PayerUUID(payerName string) string {
	return derive(categoryPayers, payerName)
}

// OrganizationUUID derives an Organization's identity from its TIN only
// (spec.md §3: "Keyed by TIN only").
func OrganizationUUID(tin string) string {
	return derive(categoryOrganizations, tin)
}

// ProviderUUID derives a Provider's identity from its NPI only
// (spec.md §3: "NPI is the only natural key").
func ProviderUUID(npi string) string {
	return derive(categoryProviders, npi)
}

// RateUUID derives a Rate's identity from the full tuple spec.md §3
// requires for determinism: (payer, organization, service_code,
// billing_code_type, negotiated_rate, billing_class, rate_type,
// plan_fingerprint).
func RateUUID(payerUUID, orgUUID, serviceCode, billingCodeType string, negotiatedRate float64, billingClass, rateType, planFingerprint string) string {
	return derive(categoryRates,
		payerUUID,
		orgUUID,
		serviceCode,
		billingCodeType,
		strconv.FormatFloat(negotiatedRate, 'f', 2, 64),
		billingClass,
		rateType,
		planFingerprint,
	)
}
