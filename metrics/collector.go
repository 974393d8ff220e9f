package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-search-cache/cache"
)

// Collector exports partition statistics as prometheus metrics. Values are
// read from the partitions on every scrape.
type Collector struct {
	cache    *cache.Manager
	keys     *prometheus.Desc
	capacity *prometheus.Desc
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	sets     *prometheus.Desc
	expired  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector whose metric names start with namespace.
func NewCollector(manager *cache.Manager, namespace string) *Collector {
	labels := []string{"partition"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, labels, nil)
	}

	return &Collector{
		cache:    manager,
		keys:     desc("keys", "Number of live keys in the partition."),
		capacity: desc("capacity", "Maximum number of keys the partition holds."),
		hits:     desc("hits_total", "Lookups served from the partition."),
		misses:   desc("misses_total", "Lookups that missed the partition."),
		sets:     desc("sets_total", "Values stored in the partition."),
		expired:  desc("expired_total", "Entries removed by the expiry sweep."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.capacity
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.cache.Stats() {
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(s.Keys), s.Name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), s.Name)
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), s.Name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), s.Name)
		ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(s.Sets), s.Name)
		ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(s.Expired), s.Name)
	}
}
