// Package metrics defines the Prometheus metrics exported by a wallet kit.
package metrics
