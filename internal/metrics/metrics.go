// Package metrics records operational counters for the data-access core on a
// private Prometheus registry. A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "linctl"

// Collector groups the counters exposed by the core.
type Collector struct {
	registry       *prometheus.Registry
	retryAttempts  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	pagesFetched   *prometheus.CounterVec
	resolverStages *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	collector := &Collector{
		registry: prometheus.NewRegistry(),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Retries scheduled after a transient failure, by error kind.",
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache reads by cache type and result (hit, miss, expired).",
		}, []string{"type", "result"}),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages requested by the pagination engine, by direction.",
		}, []string{"direction"}),
		resolverStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_resolutions_total",
			Help:      "Successful resolutions by entity and the stage that matched.",
		}, []string{"entity", "stage"}),
	}

	collector.registry.MustRegister(
		collector.retryAttempts,
		collector.cacheLookups,
		collector.pagesFetched,
		collector.resolverStages,
	)

	return collector
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RetryAttempt records a scheduled retry.
func (c *Collector) RetryAttempt(kind string) {
	if c == nil {
		return
	}

	c.retryAttempts.WithLabelValues(kind).Inc()
}

// CacheLookup records a cache read outcome.
func (c *Collector) CacheLookup(cacheType, result string) {
	if c == nil {
		return
	}

	c.cacheLookups.WithLabelValues(cacheType, result).Inc()
}

// PageFetched records one page request.
func (c *Collector) PageFetched(direction string) {
	if c == nil {
		return
	}

	c.pagesFetched.WithLabelValues(direction).Inc()
}

// ResolverStage records which resolver stage produced a match.
func (c *Collector) ResolverStage(entity, stage string) {
	if c == nil {
		return
	}

	c.resolverStages.WithLabelValues(entity, stage).Inc()
}

// RetryAttempts returns the counter for a kind, for tests and summaries.
func (c *Collector) RetryAttempts() *prometheus.CounterVec { return c.retryAttempts }

// CacheLookups returns the cache lookup counter.
func (c *Collector) CacheLookups() *prometheus.CounterVec { return c.cacheLookups }

// PagesFetched returns the page counter.
func (c *Collector) PagesFetched() *prometheus.CounterVec { return c.pagesFetched }

// ResolverStages returns the resolver stage counter.
func (c *Collector) ResolverStages() *prometheus.CounterVec { return c.resolverStages }

// WriteSummary writes every non-zero sample as "name{labels} value" lines.
func (c *Collector) WriteSummary(w io.Writer) error {
	if c == nil {
		return nil
	}

	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value := metric.GetCounter().GetValue()
			if value == 0 {
				continue
			}

			_, err := fmt.Fprintf(w, "%s%s %g\n", family.GetName(), formatLabels(metric.GetLabel()), value)
			if err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
		}
	}

	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
	}

	sort.Strings(parts)

	return "{" + strings.Join(parts, ",") + "}"
}
