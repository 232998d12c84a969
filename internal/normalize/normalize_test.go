package normalize

import (
	"testing"

	"github.com/chrscato/bph-tic/internal/identity"
	"github.com/chrscato/bph-tic/internal/model"
	"github.com/chrscato/bph-tic/internal/providerref"
	"github.com/chrscato/bph-tic/internal/quality"
)

func newTestNormalizer() *Normalizer {
	payerUUID := identity.PayerUUID("test-payer")
	bounds := Bounds{MinRate: 0.01, MaxRate: 100_000}
	gate := quality.New(80, 0.85)
	return New(payerUUID, "test-payer", nil, bounds, gate, nil)
}

func inlineItem(npi, tin string, rate float64, serviceCodes ...string) model.RawInNetworkItem {
	return model.RawInNetworkItem{
		BillingCode:     "99213",
		BillingCodeType: "CPT",
		Description:     "Office visit",
		NegotiatedRates: []model.RawNegotiatedRate{
			{
				ProviderGroups: []model.RawProviderGroup{
					{
						NPI: []model.FlexNPI{model.FlexNPI(npi)},
						TIN: model.RawTIN{Type: "ein", Value: tin},
					},
				},
				NegotiatedPrices: []model.RawNegotiatedPrice{
					{
						NegotiatedType: "negotiated",
						NegotiatedRate: model.FlexFloat(rate),
						BillingClass:   "professional",
						ServiceCode:    model.FlexStringList(serviceCodes),
					},
				},
			},
		},
	}
}

// S1: a single item with an inline provider group resolves to one Rate,
// one Organization, and one Provider, with a stable rate_uuid across reruns.
func TestNormalizeS1(t *testing.T) {
	item := inlineItem("1234567893", "12-3456789", 81.84, "11")

	n1 := newTestNormalizer()
	r1 := n1.Normalize(item, nil, RootMeta{PlanName: "Gold", PlanID: "p1"})

	if len(r1.Rates) != 1 {
		t.Fatalf("expected 1 Rate, got %d", len(r1.Rates))
	}
	if len(r1.NewOrgs) != 1 || r1.NewOrgs[0].TIN != "12-3456789" {
		t.Fatalf("expected 1 new Organization for TIN 12-3456789, got %+v", r1.NewOrgs)
	}
	if len(r1.NewProviders) != 1 || r1.NewProviders[0].NPI != "1234567893" {
		t.Fatalf("expected 1 new Provider for NPI 1234567893, got %+v", r1.NewProviders)
	}

	n2 := newTestNormalizer()
	r2 := n2.Normalize(item, nil, RootMeta{PlanName: "Gold", PlanID: "p1"})
	if r1.Rates[0].RateUUID != r2.Rates[0].RateUUID {
		t.Error("rate_uuid is not stable across reruns of the same input")
	}
}

// S2: a Luhn-invalid NPI still admits the Provider but lowers accuracy; the
// Rate is rejected only when min_accuracy_score exceeds the resulting score.
func TestNormalizeS2(t *testing.T) {
	item := inlineItem("1234567890", "12-3456789", 81.84, "11")

	lenient := New(identity.PayerUUID("p"), "p", nil, Bounds{MinRate: 0.01, MaxRate: 100_000}, quality.New(80, 0.4), nil)
	r := lenient.Normalize(item, nil, RootMeta{})
	if len(r.Rates) != 1 {
		t.Fatalf("expected the Rate to be admitted at a 0.4 accuracy threshold, got %d Rates", len(r.Rates))
	}
	if len(r.NewProviders) != 1 {
		t.Fatalf("expected the Provider to be recorded regardless of admission, got %d", len(r.NewProviders))
	}

	strict := New(identity.PayerUUID("p"), "p", nil, Bounds{MinRate: 0.01, MaxRate: 100_000}, quality.New(80, 0.9), nil)
	r2 := strict.Normalize(item, nil, RootMeta{})
	if len(r2.Rates) != 0 {
		t.Fatalf("expected the Rate to be rejected at a 0.9 accuracy threshold, got %d Rates", len(r2.Rates))
	}
}

// S3: a billing_code outside the configured whitelist is dropped before
// scoring and increments RejectedWhitelist.
func TestNormalizeS3(t *testing.T) {
	item := inlineItem("1234567893", "12-3456789", 81.84, "11")

	n := New(identity.PayerUUID("p"), "p", []string{"99214"}, Bounds{MinRate: 0.01, MaxRate: 100_000}, quality.New(80, 0.85), nil)
	r := n.Normalize(item, nil, RootMeta{})

	if len(r.Rates) != 0 {
		t.Fatalf("expected 0 Rates for a non-whitelisted billing_code, got %d", len(r.Rates))
	}
	if n.Counters.RejectedWhitelist != 1 {
		t.Errorf("RejectedWhitelist = %d, want 1", n.Counters.RejectedWhitelist)
	}
}

// S4: a negative negotiated_rate fails the global bounds check and
// increments RejectedBounds.
func TestNormalizeS4(t *testing.T) {
	item := inlineItem("1234567893", "12-3456789", -5, "11")

	n := newTestNormalizer()
	r := n.Normalize(item, nil, RootMeta{})

	if len(r.Rates) != 0 {
		t.Fatalf("expected 0 Rates for a negative negotiated_rate, got %d", len(r.Rates))
	}
	if n.Gate.Counters["test-payer"].RejectedBounds != 1 {
		t.Errorf("RejectedBounds = %d, want 1", n.Gate.Counters["test-payer"].RejectedBounds)
	}
}

// S5: a deferred provider_references entry resolves through the Table to
// the same shape a fully inline provider_groups item would produce.
func TestNormalizeS5(t *testing.T) {
	refs := providerref.NewTable()
	refs.Add(model.RawProviderReference{
		ProviderGroupID: 7,
		ProviderGroups: []model.RawProviderGroup{
			{
				NPI: []model.FlexNPI{model.FlexNPI("1234567893")},
				TIN: model.RawTIN{Type: "ein", Value: "12-3456789"},
			},
		},
	})

	item := model.RawInNetworkItem{
		BillingCode:     "99213",
		BillingCodeType: "CPT",
		NegotiatedRates: []model.RawNegotiatedRate{
			{
				ProviderReferences: []int{7},
				NegotiatedPrices: []model.RawNegotiatedPrice{
					{
						NegotiatedType: "negotiated",
						NegotiatedRate: 81.84,
						BillingClass:   "professional",
						ServiceCode:    model.FlexStringList{"11"},
					},
				},
			},
		},
	}

	inline := inlineItem("1234567893", "12-3456789", 81.84, "11")

	nViaRefs := newTestNormalizer()
	rViaRefs := nViaRefs.Normalize(item, refs, RootMeta{})

	nInline := newTestNormalizer()
	rInline := nInline.Normalize(inline, nil, RootMeta{})

	if len(rViaRefs.Rates) != 1 || len(rInline.Rates) != 1 {
		t.Fatalf("expected both paths to emit exactly 1 Rate, got %d and %d", len(rViaRefs.Rates), len(rInline.Rates))
	}
	if rViaRefs.Rates[0].RateUUID != rInline.Rates[0].RateUUID {
		t.Error("resolving via provider_references should produce the same rate_uuid as an equivalent inline group")
	}
}

func TestNormalizeCartesianProductOverServiceCodes(t *testing.T) {
	item := inlineItem("1234567893", "12-3456789", 81.84, "11", "12", "13")

	n := newTestNormalizer()
	r := n.Normalize(item, nil, RootMeta{})

	if len(r.Rates) != 3 {
		t.Fatalf("expected one Rate per service_code (3), got %d", len(r.Rates))
	}
}

func TestNormalizeDuplicateNPIUnderDifferentOrgIsNeverReemitted(t *testing.T) {
	n := newTestNormalizer()

	first := inlineItem("1234567893", "12-3456789", 81.84, "11")
	r1 := n.Normalize(first, nil, RootMeta{})
	if len(r1.NewProviders) != 1 {
		t.Fatalf("expected 1 new Provider on first sight, got %d", len(r1.NewProviders))
	}
	firstOrgUUID := r1.NewProviders[0].OrganizationUUID

	second := inlineItem("1234567893", "98-7654321", 90.00, "11")
	r2 := n.Normalize(second, nil, RootMeta{})

	if len(r2.NewProviders) != 0 {
		t.Fatalf("expected the Provider to not be re-emitted under a different organization, got %d", len(r2.NewProviders))
	}
	if len(r2.NPIMismatches) != 1 || r2.NPIMismatches[0] != "1234567893" {
		t.Fatalf("expected NPI 1234567893 to be reported as a mismatch, got %+v", r2.NPIMismatches)
	}
	if len(r2.Rates) != 1 {
		t.Fatalf("expected the second Rate to still be emitted, got %d", len(r2.Rates))
	}
	if r2.Rates[0].OrganizationUUID == firstOrgUUID {
		t.Error("the Rate should reference the organization actually resolved for this item, not the Provider's first binding")
	}
}

func TestNormalizeUnrecognizedBillingCodeTypeIsDropped(t *testing.T) {
	item := inlineItem("1234567893", "12-3456789", 81.84, "11")
	item.BillingCodeType = "SOMETHING_UNKNOWN"

	n := newTestNormalizer()
	r := n.Normalize(item, nil, RootMeta{})

	if len(r.Rates) != 0 {
		t.Fatalf("expected 0 Rates for an unrecognized billing_code_type, got %d", len(r.Rates))
	}
	if n.Counters.RejectedUnrecognizedType != 1 {
		t.Errorf("RejectedUnrecognizedType = %d, want 1", n.Counters.RejectedUnrecognizedType)
	}
}

func TestNormalizeUnresolvableProviderReferenceIsSkippedWithoutAborting(t *testing.T) {
	item := model.RawInNetworkItem{
		BillingCode:     "99213",
		BillingCodeType: "CPT",
		NegotiatedRates: []model.RawNegotiatedRate{
			{
				ProviderReferences: []int{99}, // never declared
				NegotiatedPrices: []model.RawNegotiatedPrice{
					{NegotiatedType: "negotiated", NegotiatedRate: 81.84, BillingClass: "professional", ServiceCode: model.FlexStringList{"11"}},
				},
			},
		},
	}

	n := newTestNormalizer()
	r := n.Normalize(item, providerref.NewTable(), RootMeta{})

	if len(r.Rates) != 0 {
		t.Fatalf("expected 0 Rates for an unresolvable provider_group_id, got %d", len(r.Rates))
	}
}

func TestValidNPI(t *testing.T) {
	if !ValidNPI("1234567893") {
		t.Error("expected 1234567893 to be a valid NPI")
	}
	if ValidNPI("1234567890") {
		t.Error("expected 1234567890 to be Luhn-invalid")
	}
}
