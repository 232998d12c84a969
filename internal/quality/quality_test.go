package quality

import "testing"

func validCandidate() Candidate {
	return Candidate{
		ServiceCode:      "99213",
		BillingCodeType:  "CPT",
		NegotiatedRate:   125.50,
		BillingClass:     "professional",
		PayerUUID:        "payer-uuid",
		OrganizationUUID: "org-uuid",
		TIN:              "12-3456789",
		NPIs:             []string{"1234567893"},
		MinRate:          0.01,
		MaxRate:          100_000,
	}
}

func TestCompletenessFullRecord(t *testing.T) {
	if got := validCandidate().Completeness(); got != 1.0 {
		t.Errorf("Completeness() = %v, want 1.0", got)
	}
}

func TestCompletenessMissingFields(t *testing.T) {
	c := validCandidate()
	c.OrganizationUUID = ""
	c.NPIs = nil
	if got, want := c.Completeness(), 3.0/5; got != want {
		t.Errorf("Completeness() = %v, want %v", got, want)
	}
}

func TestAccuracyFullyValid(t *testing.T) {
	if got := validCandidate().Accuracy(); got != 1.0 {
		t.Errorf("Accuracy() = %v, want 1.0", got)
	}
}

func TestAccuracyInvalidNPI(t *testing.T) {
	c := validCandidate()
	c.NPIs = []string{"0000000000"}
	if got := c.Accuracy(); got >= 1.0 {
		t.Errorf("Accuracy() = %v, want < 1.0 for an invalid NPI", got)
	}
}

func TestAccuracyOutOfBoundsRate(t *testing.T) {
	c := validCandidate()
	c.NegotiatedRate = 1_000_000
	if got := c.Accuracy(); got >= 1.0 {
		t.Errorf("Accuracy() = %v, want < 1.0 for an out-of-bounds rate", got)
	}
}

func TestAccuracyMalformedTIN(t *testing.T) {
	c := validCandidate()
	c.TIN = "not-a-tin"
	if got := c.Accuracy(); got >= 1.0 {
		t.Errorf("Accuracy() = %v, want < 1.0 for a malformed TIN", got)
	}
}

func TestAccuracyAcceptsBareNineDigitTIN(t *testing.T) {
	c := validCandidate()
	c.TIN = "123456789"
	if got := c.Accuracy(); got != 1.0 {
		t.Errorf("Accuracy() = %v, want 1.0 for a bare 9-digit TIN", got)
	}
}

func TestGateAdmitThresholds(t *testing.T) {
	g := New(80, 0.85)

	if !g.Admit("payer-a", validCandidate()) {
		t.Fatal("expected a fully valid candidate to be admitted")
	}
	if got := g.Counters["payer-a"].Admitted; got != 1 {
		t.Errorf("Admitted = %d, want 1", got)
	}

	incomplete := validCandidate()
	incomplete.ServiceCode = ""
	incomplete.PayerUUID = ""
	if g.Admit("payer-a", incomplete) {
		t.Error("expected a low-completeness candidate to be rejected")
	}
	if got := g.Counters["payer-a"].RejectedCompleteness; got != 1 {
		t.Errorf("RejectedCompleteness = %d, want 1", got)
	}

	inaccurate := validCandidate()
	inaccurate.NPIs = []string{"0000000000"}
	inaccurate.TIN = "bad"
	if g.Admit("payer-a", inaccurate) {
		t.Error("expected a low-accuracy candidate to be rejected")
	}
	if got := g.Counters["payer-a"].RejectedAccuracy; got != 1 {
		t.Errorf("RejectedAccuracy = %d, want 1", got)
	}
}

func TestGateCountersArePerPayer(t *testing.T) {
	g := New(80, 0.85)
	g.RejectWhitelist("payer-a")
	g.RejectBounds("payer-b")

	if got := g.Counters["payer-a"].RejectedWhitelist; got != 1 {
		t.Errorf("payer-a RejectedWhitelist = %d, want 1", got)
	}
	if got := g.Counters["payer-b"].RejectedBounds; got != 1 {
		t.Errorf("payer-b RejectedBounds = %d, want 1", got)
	}
	if _, ok := g.Counters["payer-b"]; !ok {
		t.Error("expected payer-b to have its own counters entry")
	}
	if c, ok := g.Counters["payer-a"]; ok && c.RejectedBounds != 0 {
		t.Error("payer-a's counters should not be affected by payer-b's rejections")
	}
}
