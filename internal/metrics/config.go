// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus metrics for dhtnode.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// HeaderRendersTotal counts config.h renders by variant.
	HeaderRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhtnode_header_renders_total",
		Help: "Total number of config.h renders, by variant.",
	}, []string{"variant"})

	// ConfigReloadsTotal counts configuration reload attempts by result.
	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhtnode_config_reloads_total",
		Help: "Total number of configuration reloads, by result.",
	}, []string{"result"})

	// PublishTotal counts Redis publish attempts by variant and result.
	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhtnode_publish_total",
		Help: "Total number of configuration publishes to Redis, by variant and result.",
	}, []string{"variant", "result"})

	// ConfigInfo exposes the active variant and header fingerprint (value is always 1).
	ConfigInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dhtnode_config_info",
		Help: "Active configuration variant and header fingerprint.",
	}, []string{"variant", "fingerprint"})
)

// RecordRender increments the render counter for a variant.
func RecordRender(variant string) {
	HeaderRendersTotal.WithLabelValues(labelOrUnknown(variant)).Inc()
}

// RecordReload records a reload attempt. A nil error counts as success.
func RecordReload(err error) {
	ConfigReloadsTotal.WithLabelValues(result(err)).Inc()
}

// RecordPublish records a publish attempt for a variant.
func RecordPublish(variant string, err error) {
	PublishTotal.WithLabelValues(labelOrUnknown(variant), result(err)).Inc()
}

// SetConfigInfo replaces the info series so only the active configuration is exported.
func SetConfigInfo(variant, fingerprint string) {
	ConfigInfo.Reset()
	ConfigInfo.WithLabelValues(labelOrUnknown(variant), fingerprint).Set(1)
}

// CounterValue returns the current value of a labeled counter (for testing).
func CounterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

func labelOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
