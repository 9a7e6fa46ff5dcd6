// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVariant(t *testing.T, id string) Variant {
	t.Helper()
	v, err := LookupVariant(id)
	require.NoError(t, err)
	return v
}

func TestDiffVariants_V1ToV2(t *testing.T) {
	got := DiffVariants(mustVariant(t, VariantV1), mustVariant(t, VariantV2))
	want := VariantDiff{
		From:    "v1",
		To:      "v2",
		Added:   []string{},
		Removed: []string{"mqtt_qos_level"},
		Changed: []ValueChange{
			{Key: "firmware_version", From: "v3", To: "v5"},
			{Key: "ntp_server", From: "a.st1.ntp.br", To: "pool.ntp.org"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DiffVariants mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffVariants_V2ToV3(t *testing.T) {
	got := DiffVariants(mustVariant(t, VariantV2), mustVariant(t, VariantV3))
	assert.Equal(t, []string{"firmware_version", "ota_password", "mqtt_attribute_topic"}, got.Removed)
	assert.Empty(t, got.Added)
	require.Len(t, got.Changed, 1)
	assert.Equal(t, "ntp_server", got.Changed[0].Key)
}

func TestDiffVariants_IsSymmetric(t *testing.T) {
	fwd := DiffVariants(mustVariant(t, VariantV1), mustVariant(t, VariantV3))
	back := DiffVariants(mustVariant(t, VariantV3), mustVariant(t, VariantV1))
	assert.Equal(t, fwd.Removed, back.Added)
	assert.Equal(t, fwd.Added, back.Removed)
	assert.True(t, DiffVariants(mustVariant(t, VariantV2), mustVariant(t, VariantV2)).Empty())
}

func TestDiff_DetectsValueAndPresenceChanges(t *testing.T) {
	old := mustVariant(t, VariantV1).Defaults()
	next := old
	next.WiFi.SSID = "changed"
	next.MQTT.QoS = nil

	summary := Diff(old, next)
	assert.Equal(t, []string{"wifi_ssid", "mqtt_qos_level"}, summary.ChangedKeys)
	assert.True(t, Diff(old, old).Empty())
}

func TestDiff_ComparesPointees(t *testing.T) {
	a := mustVariant(t, VariantV1).Defaults()
	b := mustVariant(t, VariantV1).Defaults()
	require.NotSame(t, a.Firmware.Version, b.Firmware.Version)
	assert.True(t, Diff(a, b).Empty())
}
