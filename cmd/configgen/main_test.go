// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/render"
)

func TestGenerate_WritesThenIsStable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	intro := "# Configuration\n\nHand-written intro.\n\n" + render.DocBeginMarker + "\nold\n" + render.DocEndMarker + "\n\nOutro.\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, configDocPath), []byte(intro), 0o600))

	var out bytes.Buffer
	written, err := generate(context.Background(), root, false, &out)
	require.NoError(t, err)
	assert.Len(t, written, 2+2*len(config.Variants()))

	doc, err := os.ReadFile(filepath.Join(root, configDocPath))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Hand-written intro.")
	assert.Contains(t, string(doc), "Outro.")
	assert.Contains(t, string(doc), "`MQTT_QOS_LEVEL`")
	assert.NotContains(t, string(doc), "\nold\n")

	header, err := os.ReadFile(filepath.Join(root, "include", "v1", "config.h"))
	require.NoError(t, err)
	assert.Contains(t, string(header), "#ifndef "+render.DefaultGuard)
	assert.Contains(t, string(header), generatedBanner)

	written, err = generate(context.Background(), root, false, &out)
	require.NoError(t, err)
	assert.Empty(t, written)

	stale, err := generate(context.Background(), root, true, &out)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestGenerate_CheckReportsDrift(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	_, err := generate(context.Background(), root, false, &out)
	require.NoError(t, err)

	path := filepath.Join(root, "include", "v2", "config.h")
	require.NoError(t, os.WriteFile(path, []byte("// edited by hand\n"), 0o600))

	out.Reset()
	stale, err := generate(context.Background(), root, true, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash("include/v2/config.h")}, stale)
	assert.True(t, strings.Contains(out.String(), "stale: include/v2/config.h"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "// edited by hand\n", string(data))
}

func TestGenerate_ExamplesLoadBack(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	_, err := generate(context.Background(), root, false, &out)
	require.NoError(t, err)

	noEnv := func(string) (string, bool) { return "", false }
	for _, v := range config.Variants() {
		path := filepath.Join(root, "configs", v.ID+".example.yaml")
		snap, err := config.NewLoader(path, config.WithLookupEnv(noEnv)).Load()
		require.NoError(t, err, v.ID)
		assert.Equal(t, v.ID, snap.Variant.ID)
		assert.Equal(t, v.Defaults(), snap.Device)
	}
}

func TestBuildSchema(t *testing.T) {
	data, err := buildSchema(config.Variants())
	require.NoError(t, err)

	var schema struct {
		AdditionalProperties bool                      `json:"additionalProperties"`
		Properties           map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.False(t, schema.AdditionalProperties)
	assert.Len(t, schema.Properties, len(config.MustRegistry().Entries)+1)

	port := schema.Properties["mqtt_server_port"]
	assert.Equal(t, "integer", port["type"])
	assert.Equal(t, float64(65535), port["maximum"])

	assert.Equal(t, true, schema.Properties["wifi_password"]["writeOnly"])
	assert.Contains(t, schema.Properties["dht_type"]["enum"], "DHT22")

	qosDefaults := schema.Properties["mqtt_qos_level"]["x-defaults"].(map[string]any)
	assert.Equal(t, map[string]any{"v1": float64(1)}, qosDefaults)
}

func TestCheckedInFilesAreCurrent(t *testing.T) {
	var out bytes.Buffer
	stale, err := generate(context.Background(), filepath.Join("..", ".."), true, &out)
	require.NoError(t, err)
	assert.Empty(t, stale, "run `go run ./cmd/configgen`:\n%s", out.String())
}
