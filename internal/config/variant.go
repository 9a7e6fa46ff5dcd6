// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"
)

// Variant IDs. The catalogue is ordered; migrations only move forward.
const (
	VariantV1 = "v1"
	VariantV2 = "v2"
	VariantV3 = "v3"

	DefaultVariantID = VariantV1
)

// Variant is one generation of the configuration surface: the set of options
// it declares and the defaults it ships with.
type Variant struct {
	ID          string
	Description string

	keys      map[string]struct{}
	overrides map[string]any
}

func newVariant(id, desc string, omit []string, overrides map[string]any) Variant {
	v := Variant{
		ID:          id,
		Description: desc,
		keys:        make(map[string]struct{}),
		overrides:   overrides,
	}
	omitted := make(map[string]struct{}, len(omit))
	for _, k := range omit {
		omitted[k] = struct{}{}
	}
	for _, e := range registryEntries() {
		if _, skip := omitted[e.Key]; skip {
			continue
		}
		v.keys[e.Key] = struct{}{}
	}
	return v
}

var catalogue = []Variant{
	newVariant(VariantV1, "Full surface: firmware version, OTA, QoS and attribute topic.",
		nil,
		map[string]any{
			"firmware_version":     "v3",
			"ota_password":         "",
			"mqtt_qos_level":       1,
			"ntp_server":           "a.st1.ntp.br",
			"mqtt_attribute_topic": "v1/devices/me/attributes",
		}),
	newVariant(VariantV2, "QoS level dropped; firmware version bumped.",
		[]string{"mqtt_qos_level"},
		map[string]any{
			"firmware_version":     "v5",
			"ota_password":         "",
			"ntp_server":           "pool.ntp.org",
			"mqtt_attribute_topic": "v1/devices/me/attributes",
		}),
	newVariant(VariantV3, "Minimal surface: telemetry only, no OTA or attributes.",
		[]string{"firmware_version", "ota_password", "mqtt_qos_level", "mqtt_attribute_topic"},
		map[string]any{
			"ntp_server": "",
		}),
}

// Variants returns the catalogue in migration order.
func Variants() []Variant {
	out := make([]Variant, len(catalogue))
	copy(out, catalogue)
	return out
}

// VariantIDs returns the catalogue IDs in migration order.
func VariantIDs() []string {
	ids := make([]string, len(catalogue))
	for i, v := range catalogue {
		ids[i] = v.ID
	}
	return ids
}

// LookupVariant returns the variant with the given ID (case-insensitive).
func LookupVariant(id string) (Variant, error) {
	want := strings.ToLower(strings.TrimSpace(id))
	for _, v := range catalogue {
		if v.ID == want {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownVariant, id, strings.Join(VariantIDs(), ", "))
}

func variantIndex(id string) int {
	for i, v := range catalogue {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Declares reports whether the variant declares key.
func (v Variant) Declares(key string) bool {
	_, ok := v.keys[key]
	return ok
}

// Keys returns the declared keys in registry order.
func (v Variant) Keys() []string {
	var keys []string
	for _, e := range MustRegistry().Entries {
		if v.Declares(e.Key) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Default returns the variant's default for a declared key.
func (v Variant) Default(key string) (any, bool) {
	if !v.Declares(key) {
		return nil, false
	}
	if def, ok := v.overrides[key]; ok {
		return def, true
	}
	e, ok := MustRegistry().Lookup(key)
	if !ok || e.Default == nil {
		return nil, false
	}
	return e.Default, true
}

// DefaultLayer returns a fresh layer holding every declared option's default.
func (v Variant) DefaultLayer() FileConfig {
	layer := FileConfig{Variant: v.ID}
	for _, key := range v.Keys() {
		def, ok := v.Default(key)
		if !ok {
			// Registry and catalogue disagree; caught by tests.
			panic(fmt.Sprintf("variant %s: no default for %s", v.ID, key))
		}
		if err := layer.Set(key, def); err != nil {
			panic(fmt.Sprintf("variant %s: %v", v.ID, err))
		}
	}
	return layer
}

// Defaults returns the variant's default DeviceConfig.
func (v Variant) Defaults() DeviceConfig {
	cfg, err := v.Resolve(v.DefaultLayer())
	if err != nil {
		panic(fmt.Sprintf("variant %s: %v", v.ID, err))
	}
	return cfg
}

// Resolve converts a complete layer into a DeviceConfig. Keys the variant does
// not declare are rejected with ErrUndeclaredKey; declared keys missing from
// the layer keep their zero value.
func (v Variant) Resolve(layer FileConfig) (DeviceConfig, error) {
	var cfg DeviceConfig
	for _, key := range layer.SetKeys() {
		if !v.Declares(key) {
			return cfg, fmt.Errorf("%w: %s does not declare %s", ErrUndeclaredKey, v.ID, key)
		}
	}
	for _, e := range MustRegistry().Entries {
		val, ok := layer.Get(e.Key)
		if !ok {
			continue
		}
		if err := setField(&cfg, e.FieldPath, val); err != nil {
			return cfg, fmt.Errorf("set %s: %w", e.Key, err)
		}
	}
	return cfg, nil
}
