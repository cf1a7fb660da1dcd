// Package metrics defines Prometheus counters for mail delivery and
// certificate matching outcomes.
package metrics
