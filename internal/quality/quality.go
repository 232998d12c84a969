// Package quality implements the per-row completeness/accuracy scoring
// and per-payer rejection counters (spec.md §4.6).
//
// Grounded on _examples/original_source/production_etl_pipeline.py's
// DataQualityValidator.validate_rate_record for the shape of a quality
// check (required-field presence, rate sanity, NPI presence feeding a
// confidence score), reworked to the two-factor completeness/accuracy
// formula spec.md §4.6 specifies exactly.
package quality

import (
	"github.com/chrscato/bph-tic/pkg/npi"
)

// Candidate is the subset of a not-yet-admitted Rate the Quality Gate
// scores. TIN/NPI are passed separately from the Rate itself since they
// belong to the Organization/Provider the row references, not the row.
type Candidate struct {
	ServiceCode     string
	BillingCodeType string
	NegotiatedRate  float64
	BillingClass    string
	PayerUUID       string
	OrganizationUUID string
	TIN             string
	NPIs            []string
	MinRate         float64
	MaxRate         float64
}

// presentRequiredFields counts the fields whose presence feeds the completeness
// score, mirroring validate_rate_record's required_fields list extended
// with the two canonical FKs spec.md §4.6 evaluates completeness over.
func (c Candidate) presentRequiredFields() (present, total int) {
	total = 5
	if c.ServiceCode != "" {
		present++
	}
	if c.NegotiatedRate > 0 {
		present++
	}
	if c.PayerUUID != "" {
		present++
	}
	if c.OrganizationUUID != "" {
		present++
	}
	if len(c.NPIs) > 0 {
		present++
	}
	return present, total
}

// Completeness returns the fraction of required fields present.
func (c Candidate) Completeness() float64 {
	present, total := c.presentRequiredFields()
	return float64(present) / float64(total)
}

// Accuracy is the product of three factors: NPI Luhn validity, rate
// bounds conformance, and TIN format validity (spec.md §4.6).
func (c Candidate) Accuracy() float64 {
	score := 1.0
	score *= npiFactor(c.NPIs)
	score *= rateFactor(c.NegotiatedRate, c.MinRate, c.MaxRate)
	score *= tinFactor(c.TIN)
	return score
}

func npiFactor(npis []string) float64 {
	if len(npis) == 0 {
		return 0.5
	}
	for _, n := range npis {
		if !npi.Valid(n) {
			return 0.5
		}
	}
	return 1.0
}

func rateFactor(rate, min, max float64) float64 {
	if rate <= 0 {
		return 0.6
	}
	if min > 0 && rate < min {
		return 0.6
	}
	if max > 0 && rate > max {
		return 0.6
	}
	return 1.0
}

// tinFactor checks the conventional US EIN shape NN-NNNNNNN. Payers that
// send a bare 9-digit TIN are tolerated at full accuracy; anything else
// is marked down.
func tinFactor(tin string) float64 {
	if isEINFormat(tin) || isDigits(tin, 9) {
		return 1.0
	}
	return 0.8
}

func isEINFormat(s string) bool {
	if len(s) != 10 || s[2] != '-' {
		return false
	}
	return isDigits(s[:2], 2) && isDigits(s[3:], 7)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Gate holds the admission thresholds and per-payer rejection counters.
type Gate struct {
	MinCompletenessPct float64
	MinAccuracyScore   float64

	Counters map[string]*Counters
}

// Counters tracks one payer's admission outcomes across a run (spec.md
// §4.6, surfaced in the end-of-run manifest).
type Counters struct {
	Admitted             int64
	RejectedCompleteness int64
	RejectedAccuracy     int64
	RejectedWhitelist    int64
	RejectedBounds       int64
}

// New builds a Gate with the configured thresholds.
func New(minCompletenessPct, minAccuracyScore float64) *Gate {
	return &Gate{
		MinCompletenessPct: minCompletenessPct,
		MinAccuracyScore:   minAccuracyScore,
		Counters:           make(map[string]*Counters),
	}
}

func (g *Gate) counters(payer string) *Counters {
	c, ok := g.Counters[payer]
	if !ok {
		c = &Counters{}
		g.Counters[payer] = c
	}
	return c
}

// Admit scores c and returns whether the row passes completeness and
// accuracy thresholds, updating payer's counters accordingly. It does
// not apply the whitelist or bounds pre-filters — those run earlier in
// the Normalizer's filtering pipeline (spec.md §4.4) and increment
// RejectedWhitelist/RejectedBounds directly via RejectWhitelist/
// RejectBounds.
func (g *Gate) Admit(payer string, c Candidate) bool {
	counters := g.counters(payer)

	if c.Completeness() < g.MinCompletenessPct/100 {
		counters.RejectedCompleteness++
		return false
	}
	if c.Accuracy() < g.MinAccuracyScore {
		counters.RejectedAccuracy++
		return false
	}
	counters.Admitted++
	return true
}

// RejectWhitelist records a row dropped by the billing_code whitelist
// filter (spec.md §4.4 rule 1).
func (g *Gate) RejectWhitelist(payer string) {
	g.counters(payer).RejectedWhitelist++
}

// RejectBounds records a row dropped by the rate-bounds or per-code
// ceiling filter (spec.md §4.4 rule 2).
func (g *Gate) RejectBounds(payer string) {
	g.counters(payer).RejectedBounds++
}
