// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateFileConfig_V1ToV3(t *testing.T) {
	in, err := ParseFileConfig([]byte(`
variant: v1
firmware_version: v3
wifi_ssid: home
ota_password: secret
mqtt_qos_level: 1
mqtt_attribute_topic: v1/devices/me/attributes
`))
	require.NoError(t, err)

	out, changes, err := MigrateFileConfig(in, "v3")
	require.NoError(t, err)

	assert.Equal(t, VariantV3, out.Variant)
	assert.Equal(t, []string{"wifi_ssid"}, out.SetKeys())
	assert.Equal(t, []string{
		"v1 -> v2: removed mqtt_qos_level (no longer declared)",
		"v1 -> v2: firmware_version v3 -> v5",
		"v2 -> v3: removed firmware_version (no longer declared)",
		"v2 -> v3: removed ota_password (no longer declared)",
		"v2 -> v3: removed mqtt_attribute_topic (no longer declared)",
		"set variant to v3",
	}, changes)

	// Input is untouched.
	assert.Equal(t, "v1", in.Variant)
	assert.Len(t, in.SetKeys(), 5)

	// The result loads against its new variant.
	_, err = mustVariant(t, VariantV3).Resolve(out)
	require.NoError(t, err)
}

func TestMigrateFileConfig_KeepsCustomFirmwareVersion(t *testing.T) {
	var in FileConfig
	require.NoError(t, in.Set("firmware_version", "custom-7"))

	out, changes, err := MigrateFileConfig(in, "v2")
	require.NoError(t, err)
	got, ok := out.Get("firmware_version")
	require.True(t, ok)
	assert.Equal(t, "custom-7", got)
	assert.Equal(t, []string{"set variant to v2"}, changes)
}

func TestMigrateFileConfig_SameVariant(t *testing.T) {
	in := FileConfig{Variant: "v2"}
	out, changes, err := MigrateFileConfig(in, "v2")
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, "v2", out.Variant)
}

func TestMigrateFileConfig_Errors(t *testing.T) {
	_, _, err := MigrateFileConfig(FileConfig{Variant: "v3"}, "v1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDowngrade))

	_, _, err = MigrateFileConfig(FileConfig{}, "")
	require.Error(t, err)

	_, _, err = MigrateFileConfig(FileConfig{}, "v4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVariant))
}
