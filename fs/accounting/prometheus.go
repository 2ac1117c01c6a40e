package accounting

import (
	"github.com/prometheus/client_golang/prometheus"
)

var namespace = "drivedup_"

// Collector is a prometheus.Collector reading from a StatsInfo
type Collector struct {
	stats         *StatsInfo
	files         *prometheus.Desc
	bytes         *prometheus.Desc
	folders       *prometheus.Desc
	comments      *prometheus.Desc
	replies       *prometheus.Desc
	errors        *prometheus.Desc
	commentErrors *prometheus.Desc
	retries       *prometheus.Desc
}

// NewCollector makes a Collector for the stats passed in
func NewCollector(stats *StatsInfo) *Collector {
	return &Collector{
		stats: stats,
		files: prometheus.NewDesc(namespace+"files_copied_total",
			"Total number of files copied",
			nil, nil,
		),
		bytes: prometheus.NewDesc(namespace+"bytes_copied_total",
			"Total size of the files copied",
			nil, nil,
		),
		folders: prometheus.NewDesc(namespace+"folders_created_total",
			"Total number of folders created",
			nil, nil,
		),
		comments: prometheus.NewDesc(namespace+"comments_copied_total",
			"Total number of comments copied",
			nil, nil,
		),
		replies: prometheus.NewDesc(namespace+"replies_copied_total",
			"Total number of comment replies copied",
			nil, nil,
		),
		errors: prometheus.NewDesc(namespace+"errors_total",
			"Number of files and folders which couldn't be copied",
			nil, nil,
		),
		commentErrors: prometheus.NewDesc(namespace+"comment_errors_total",
			"Number of comments and replies which couldn't be copied",
			nil, nil,
		),
		retries: prometheus.NewDesc(namespace+"low_level_retries_total",
			"Number of low level retries",
			nil, nil,
		),
	}
}

// Describe is part of the Collector interface: https://godoc.org/github.com/prometheus/client_golang/prometheus#Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.files
	ch <- c.bytes
	ch <- c.folders
	ch <- c.comments
	ch <- c.replies
	ch <- c.errors
	ch <- c.commentErrors
	ch <- c.retries
}

// Collect is part of the Collector interface: https://godoc.org/github.com/prometheus/client_golang/prometheus#Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch <- prometheus.MustNewConstMetric(c.files, prometheus.CounterValue, float64(s.files))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(s.bytes))
	ch <- prometheus.MustNewConstMetric(c.folders, prometheus.CounterValue, float64(s.folders))
	ch <- prometheus.MustNewConstMetric(c.comments, prometheus.CounterValue, float64(s.comments))
	ch <- prometheus.MustNewConstMetric(c.replies, prometheus.CounterValue, float64(s.replies))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.errors))
	ch <- prometheus.MustNewConstMetric(c.commentErrors, prometheus.CounterValue, float64(s.commentErrors))
	ch <- prometheus.MustNewConstMetric(c.retries, prometheus.CounterValue, float64(s.retries))
}
