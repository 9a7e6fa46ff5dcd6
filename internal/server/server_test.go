// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/metrics"
	"github.com/ManuGH/dhtnode/internal/render"
)

type staticSource struct {
	snap config.Snapshot
}

func (s staticSource) Get() config.Snapshot { return s.snap }

func newTestServer(t *testing.T) (*Server, config.Snapshot) {
	t.Helper()
	v, err := config.LookupVariant(config.VariantV2)
	require.NoError(t, err)

	cfg := v.Defaults()
	ssid := "lab"
	pass := "hunter2"
	cfg.WiFi.SSID = ssid
	cfg.WiFi.Password = pass

	snap := config.Snapshot{
		Variant: v,
		Device:  cfg,
		Sources: map[string]config.Source{"wifi_ssid": config.SourceFile, "wifi_password": config.SourceEnv},
	}
	return New(staticSource{snap: snap}, Options{Version: "test"}), snap
}

func do(t *testing.T, h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "v2", body["variant"])
	assert.Equal(t, "test", body["version"])
}

func TestListVariants(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/v1/variants", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body []variantSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 3)
	assert.Equal(t, []string{"v1", "v2", "v3"}, []string{body[0].ID, body[1].ID, body[2].ID})
	assert.True(t, body[1].Active)
	assert.False(t, body[0].Active)
	assert.Contains(t, body[0].Keys, "mqtt_qos_level")
	assert.NotContains(t, body[1].Keys, "mqtt_qos_level")
}

func TestGetVariant_ActiveMasksSecrets(t *testing.T) {
	srv, snap := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/v1/variants/v2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body variantDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Active)
	assert.Equal(t, "lab", body.Values["wifi_ssid"])
	assert.Equal(t, "***", body.Values["wifi_password"])
	assert.NotContains(t, rr.Body.String(), "hunter2")
	assert.Equal(t, config.SourceFile, body.Sources["wifi_ssid"])

	header, err := render.Header(snap.Variant, snap.Device, render.HeaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, render.Fingerprint(header), body.Fingerprint)
}

func TestGetVariant_InactiveServesDefaults(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/v1/variants/v1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body variantDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Active)
	assert.Empty(t, body.Sources)
	assert.Equal(t, "v3", body.Values["firmware_version"])
	assert.Equal(t, "", body.Values["wifi_ssid"])
}

func TestUnknownVariant(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, target := range []string{
		"/api/v1/variants/v9",
		"/api/v1/variants/v9/config.h",
		"/api/v1/variants/v9/example.yaml",
		"/api/v1/variants/v9/diff/v1",
		"/api/v1/variants/v1/diff/v9",
	} {
		rr := do(t, srv, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json", target)
		assert.Contains(t, rr.Body.String(), "unknown_variant", target)
	}
}

func TestHeader_ETagAndConditional(t *testing.T) {
	srv, snap := newTestServer(t)
	before := metrics.CounterValue(metrics.HeaderRendersTotal, "v2")

	rr := do(t, srv, http.MethodGet, "/api/v1/variants/v2/config.h", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	want, err := render.Header(snap.Variant, snap.Device, render.HeaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, string(want), rr.Body.String())
	assert.Contains(t, rr.Body.String(), `#define WIFI_SSID     "lab"`)

	etag := rr.Header().Get("ETag")
	assert.Equal(t, `"`+render.Fingerprint(want)+`"`, etag)
	assert.Equal(t, before+1, metrics.CounterValue(metrics.HeaderRendersTotal, "v2"))

	rr = do(t, srv, http.MethodGet, "/api/v1/variants/v2/config.h", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, before+1, metrics.CounterValue(metrics.HeaderRendersTotal, "v2"))

	rr = do(t, srv, http.MethodGet, "/api/v1/variants/v2/config.h", map[string]string{"If-None-Match": `"stale"`})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHeader_IdenticalAcrossRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	a := do(t, srv, http.MethodGet, "/api/v1/variants/v3/config.h", nil)
	b := do(t, srv, http.MethodGet, "/api/v1/variants/v3/config.h", nil)
	require.Equal(t, http.StatusOK, a.Code)
	assert.Equal(t, a.Body.String(), b.Body.String())
	assert.Equal(t, a.Header().Get("ETag"), b.Header().Get("ETag"))
	assert.NotContains(t, a.Body.String(), "FIRMWARE_VERSION")
}

func TestExampleYAML(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/v1/variants/v3/example.yaml", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/yaml")
	assert.Contains(t, rr.Body.String(), "variant: v3")
	assert.NotContains(t, rr.Body.String(), "ota_password")
}

func TestDiff(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/v1/variants/v1/diff/v3", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var d config.VariantDiff
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, "v1", d.From)
	assert.Equal(t, "v3", d.To)
	assert.Empty(t, d.Added)
	assert.ElementsMatch(t, []string{"firmware_version", "ota_password", "mqtt_qos_level", "mqtt_attribute_topic"}, d.Removed)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/v1/variants/v1/config.h", nil)
	rr := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "dhtnode_header_renders_total"))
}

func TestNotFoundRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_found")
}

func TestEtagMatches(t *testing.T) {
	assert.False(t, etagMatches("", `"a"`))
	assert.True(t, etagMatches(`"a"`, `"a"`))
	assert.True(t, etagMatches(`W/"a"`, `"a"`))
	assert.True(t, etagMatches(`"b", "a"`, `"a"`))
	assert.True(t, etagMatches("*", `"a"`))
	assert.False(t, etagMatches(`"b"`, `"a"`))
}
