package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Price request outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Registry holds the service collectors on a private prometheus registry.
// Methods are safe to call on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	PriceRequests   *prometheus.CounterVec
	CatalogLatency  prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	Offers          *prometheus.CounterVec
	APIKeysIssued   prometheus.Counter
	APIKeysExpired  prometheus.Counter
	EventsPublished *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyprice_price_requests_total",
		Help: "Price requests by outcome.",
	}, []string{"outcome"})
	catalog := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "keyprice_catalog_request_seconds",
		Help:    "Latency of catalog searches.",
		Buckets: prometheus.DefBuckets,
	})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyprice_cache_lookups_total",
		Help: "Price cache lookups by result.",
	}, []string{"result"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyprice_offers_total",
		Help: "Offers seen per pipeline stage.",
	}, []string{"stage"})
	issued := prometheus.NewCounter(prometheus.CounterOpts{Name: "keyprice_api_keys_issued_total"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{Name: "keyprice_api_keys_expired_total"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyprice_search_events_total",
	}, []string{"result"})

	r.MustRegister(requests, catalog, cache, offers, issued, expired, events)
	r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{
		reg:             r,
		PriceRequests:   requests,
		CatalogLatency:  catalog,
		CacheLookups:    cache,
		Offers:          offers,
		APIKeysIssued:   issued,
		APIKeysExpired:  expired,
		EventsPublished: events,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveRequest(outcome string) {
	if r == nil {
		return
	}
	r.PriceRequests.WithLabelValues(outcome).Inc()
}

func (r *Registry) ObserveCatalog(d time.Duration) {
	if r == nil {
		return
	}
	r.CatalogLatency.Observe(d.Seconds())
}

func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	r.CacheLookups.WithLabelValues("miss").Inc()
}

func (r *Registry) AddOffers(stage string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.Offers.WithLabelValues(stage).Add(float64(n))
}

func (r *Registry) ObserveKeyIssued() {
	if r == nil {
		return
	}
	r.APIKeysIssued.Inc()
}

func (r *Registry) AddKeysExpired(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.APIKeysExpired.Add(float64(n))
}

func (r *Registry) ObserveEvent(ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.EventsPublished.WithLabelValues("ok").Inc()
		return
	}
	r.EventsPublished.WithLabelValues("failed").Inc()
}
