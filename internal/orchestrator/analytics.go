package orchestrator

import (
	"time"

	"github.com/chrscato/bph-tic/internal/model"
)

// analyticsAggregator accumulates per-(service_code, geographic_scope)
// statistics across one payer pipeline run, emitted as Analytics rows
// at FINALIZE (spec.md §3: "aggregated per (service_code,
// geographic_scope) at end of run").
type analyticsAggregator struct {
	payerName string
	buckets   map[string]*bucket
}

type bucket struct {
	serviceCode     string
	geographicScope string
	count           int64
	min, max, sum   float64
	orgs            map[string]bool
}

func newAnalyticsAggregator(payerName string) *analyticsAggregator {
	return &analyticsAggregator{payerName: payerName, buckets: make(map[string]*bucket)}
}

func (a *analyticsAggregator) observe(r model.Rate) {
	scope := r.GeographicScopeJSON
	key := r.ServiceCode + "|" + scope

	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{serviceCode: r.ServiceCode, geographicScope: scope, min: r.NegotiatedRate, max: r.NegotiatedRate, orgs: make(map[string]bool)}
		a.buckets[key] = b
	}
	b.count++
	b.sum += r.NegotiatedRate
	if r.NegotiatedRate < b.min {
		b.min = r.NegotiatedRate
	}
	if r.NegotiatedRate > b.max {
		b.max = r.NegotiatedRate
	}
	b.orgs[r.OrganizationUUID] = true
}

// rows materializes the accumulated buckets as Analytics rows.
func (a *analyticsAggregator) rows() map[string]model.Analytics {
	out := make(map[string]model.Analytics, len(a.buckets))
	now := time.Now().UTC()
	for key, b := range a.buckets {
		mean := 0.0
		if b.count > 0 {
			mean = b.sum / float64(b.count)
		}
		out[key] = model.Analytics{
			ServiceCode:       b.serviceCode,
			GeographicScope:   b.geographicScope,
			PayerName:         a.payerName,
			RateCount:         b.count,
			MinRate:           b.min,
			MaxRate:           b.max,
			MeanRate:          mean,
			OrganizationCount: int64(len(b.orgs)),
			CreatedAt:         now,
		}
	}
	return out
}
