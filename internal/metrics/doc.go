// Package metrics exposes Prometheus collectors for repository lookups and
// HTTP traffic.
package metrics
