// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by config spans.
const (
	VariantKey     = "dhtnode.variant"
	FingerprintKey = "dhtnode.fingerprint"
	KeyCountKey    = "dhtnode.keys"
	ActiveKey      = "dhtnode.active"

	// Resource attributes.
	ServedVariantKey = "dhtnode.served_variant"
	CommitKey        = "dhtnode.commit"
)

// RenderAttributes describes one header render.
func RenderAttributes(variant string, active bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(VariantKey, variant),
		attribute.Bool(ActiveKey, active),
	}
}

// ResultAttributes describes the rendered output.
func ResultAttributes(fingerprint string, keys int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(FingerprintKey, fingerprint),
		attribute.Int(KeyCountKey, keys),
	}
}
