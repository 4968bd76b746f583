// Package metrics defines Larder's observability hooks.
//
// Components depend on the Recorder interface and default to NoopRecorder.
// When metrics_addr is configured the application wires a PrometheusRecorder
// and serves it on /metrics.
package metrics
