// Package metrics defines the Prometheus metrics exported by the guest
// gallery service and a periodic collector for gallery-level gauges.
package metrics
