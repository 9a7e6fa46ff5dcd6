// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleYAML_LoadsBackToDefaults(t *testing.T) {
	for _, v := range config.Variants() {
		t.Run(v.ID, func(t *testing.T) {
			data, err := ExampleYAML(v)
			require.NoError(t, err)

			s := string(data)
			assert.True(t, strings.HasPrefix(s, "# dhtnode overlay for variant "+v.ID))
			assert.Contains(t, s, "variant: "+v.ID+"\n")

			path := filepath.Join(t.TempDir(), v.ID+".example.yaml")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			snap, err := config.NewLoader(path, config.WithLookupEnv(func(string) (string, bool) { return "", false })).Load()
			require.NoError(t, err)
			assert.Equal(t, v.ID, snap.Variant.ID)
			assert.Equal(t, v.Defaults(), snap.Device)
		})
	}
}

func TestExampleYAML_OmitsUndeclared(t *testing.T) {
	data, err := ExampleYAML(mustVariant(t, config.VariantV3))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mqtt_qos_level")
	assert.NotContains(t, string(data), "ota_password")
	assert.Contains(t, string(data), `ntp_server: ""`)
}

func TestDocsTable(t *testing.T) {
	out, err := DocsTable(config.Variants())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, DocBeginMarker))
	assert.True(t, strings.HasSuffix(out, DocEndMarker))
	assert.Contains(t, out, "| Key | Macro | Env | Kind | v1 | v2 | v3 |")
	assert.Contains(t, out, "| `mqtt_qos_level` | `MQTT_QOS_LEVEL` | `DHTNODE_MQTT_QOS_LEVEL` | int | `1` | - | - |")
	assert.Contains(t, out, "| `firmware_version` | `FIRMWARE_VERSION` | `DHTNODE_FIRMWARE_VERSION` | string | `\"v3\"` | `\"v5\"` | - |")
	assert.Contains(t, out, "| `wifi_password` | `WIFI_PASSWORD` | `DHTNODE_WIFI_PASSWORD` | string (secret) |")
}

func TestReplaceGeneratedSection(t *testing.T) {
	doc := "# Config\n\nintro\n\n" + DocBeginMarker + "\nold\n" + DocEndMarker + "\n\noutro\n"
	got := ReplaceGeneratedSection(doc, DocBeginMarker+"\nnew\n"+DocEndMarker)
	assert.Equal(t, "# Config\n\nintro\n\n"+DocBeginMarker+"\nnew\n"+DocEndMarker+"\n\noutro\n", got)

	appended := ReplaceGeneratedSection("# Config\n", "GEN")
	assert.Equal(t, "# Config\n\n\nGEN\n", appended)
}

func TestWriteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "include", "v1", "config.h")

	require.NoError(t, WriteFile(ctx, path, []byte("a\n")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(got))

	changed, err := WriteIfChanged(ctx, path, []byte("a\n"))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = WriteIfChanged(ctx, path, []byte("b\n"))
	require.NoError(t, err)
	assert.True(t, changed)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestExampleYAML_Layout(t *testing.T) {
	data, err := ExampleYAML(mustVariant(t, config.VariantV3))
	require.NoError(t, err)

	want := "variant: v3\n\n# -- WiFi Credentials --\n# WiFi network name.\nwifi_ssid: \"\"\n# WiFi passphrase. (secret)\nwifi_password: \"\"\n"
	assert.Contains(t, string(data), want)
	assert.Contains(t, string(data), "dht_type: DHT11\n")
	assert.True(t, strings.HasSuffix(string(data), "mqtt_telemetry_topic: v1/devices/me/telemetry\n"))
}
