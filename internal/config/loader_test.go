// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ManuGH/dhtnode/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsOnly(t *testing.T) {
	snap, err := NewLoader("", WithLookupEnv(envMap(nil))).Load()
	require.NoError(t, err)

	assert.Equal(t, VariantV1, snap.Variant.ID)
	v1, _ := LookupVariant(VariantV1)
	assert.Equal(t, v1.Defaults(), snap.Device)
	assert.False(t, snap.Strict)
	for key, src := range snap.Sources {
		assert.Equal(t, SourceDefault, src, key)
	}
}

func TestLoader_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "DHTNODE_WIFI_SSID=from-dotenv\nDHTNODE_MQTT_CLIENT_ID=dotenv-client\nDHTNODE_DHT_PIN=4\n")

	cfgFile := filepath.Join(dir, "node.yaml")
	writeFile(t, cfgFile, "variant: v2\nwifi_ssid: from-file\ndht_pin: 5\n")

	loader := NewLoader(cfgFile,
		WithEnvFile(envFile),
		WithLookupEnv(envMap(map[string]string{"DHTNODE_DHT_PIN": "13"})),
	)
	snap, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, VariantV2, snap.Variant.ID)
	assert.Equal(t, "from-file", snap.Device.WiFi.SSID)
	assert.Equal(t, "dotenv-client", snap.Device.MQTT.ClientID)
	assert.Equal(t, 13, snap.Device.Sensor.Pin)

	assert.Equal(t, SourceFile, snap.Sources["wifi_ssid"])
	assert.Equal(t, SourceDotenv, snap.Sources["mqtt_client_id"])
	assert.Equal(t, SourceEnv, snap.Sources["dht_pin"])
	assert.Equal(t, SourceDefault, snap.Sources["mqtt_server_port"])

	_, consumed := loader.ConsumedEnvKeys["DHTNODE_DHT_PIN"]
	assert.True(t, consumed)
}

func TestLoader_ExplicitEmptyOverridesDefault(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "node.yaml")
	writeFile(t, cfgFile, "variant: v1\nntp_server: \"\"\nmqtt_qos_level: 0\n")

	snap, err := NewLoader(cfgFile, WithLookupEnv(envMap(nil))).Load()
	require.NoError(t, err)

	assert.Empty(t, snap.Device.NTP.Server)
	require.NotNil(t, snap.Device.MQTT.QoS)
	assert.Equal(t, 0, *snap.Device.MQTT.QoS)
	assert.Equal(t, SourceFile, snap.Sources["ntp_server"])
}

func TestLoader_EmptyEnvValueIsIgnored(t *testing.T) {
	snap, err := NewLoader("", WithLookupEnv(envMap(map[string]string{"DHTNODE_NTP_SERVER": ""}))).Load()
	require.NoError(t, err)
	assert.Equal(t, "a.st1.ntp.br", snap.Device.NTP.Server)
}

func TestLoader_UnknownFieldIsRejected(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "node.yaml")
	writeFile(t, cfgFile, "wifi_ssid: home\nwifi_channel: 6\n")

	_, err := NewLoader(cfgFile, WithLookupEnv(envMap(nil))).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField))
}

func TestLoader_UndeclaredKeyIsRejected(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "node.yaml")
	writeFile(t, cfgFile, "variant: v3\nota_password: hunter2\n")

	_, err := NewLoader(cfgFile, WithLookupEnv(envMap(nil))).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndeclaredKey))
}

func TestLoader_UndeclaredEnvKeyIsRejected(t *testing.T) {
	_, err := NewLoader("",
		WithVariant(VariantV2),
		WithLookupEnv(envMap(map[string]string{"DHTNODE_MQTT_QOS_LEVEL": "1"})),
	).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndeclaredKey))
}

func TestLoader_VariantSelection(t *testing.T) {
	dir := t.TempDir()
	withV3 := filepath.Join(dir, "v3.yaml")
	writeFile(t, withV3, "variant: v3\n")
	noVariant := filepath.Join(dir, "plain.yaml")
	writeFile(t, noVariant, "wifi_ssid: home\n")

	tests := []struct {
		name    string
		path    string
		opts    []LoaderOption
		env     map[string]string
		want    string
		wantErr error
	}{
		{name: "default", want: VariantV1},
		{name: "env", env: map[string]string{EnvVariant: "v2"}, want: VariantV2},
		{name: "file beats env", path: withV3, env: map[string]string{EnvVariant: "v2"}, want: VariantV3},
		{name: "option beats env", path: noVariant, opts: []LoaderOption{WithVariant("v3")}, env: map[string]string{EnvVariant: "v2"}, want: VariantV3},
		{name: "option agrees with file", path: withV3, opts: []LoaderOption{WithVariant("V3")}, want: VariantV3},
		{name: "option conflicts with file", path: withV3, opts: []LoaderOption{WithVariant("v1")}, wantErr: ErrVariantMismatch},
		{name: "unknown", env: map[string]string{EnvVariant: "v7"}, wantErr: ErrUnknownVariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]LoaderOption{WithLookupEnv(envMap(tt.env))}, tt.opts...)
			snap, err := NewLoader(tt.path, opts...).Load()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.Variant.ID)
		})
	}
}

func TestLoader_StrictMode(t *testing.T) {
	_, err := NewLoader("", WithLookupEnv(envMap(map[string]string{EnvStrict: "true"}))).Load()
	require.Error(t, err)

	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))
	var fields []string
	for _, e := range verr.Errors() {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"wifi_ssid", "mqtt_server_address", "mqtt_client_id"}, fields)

	snap, err := NewLoader("",
		WithStrict(true),
		WithLookupEnv(envMap(map[string]string{
			"DHTNODE_WIFI_SSID":           "home",
			"DHTNODE_MQTT_SERVER_ADDRESS": "broker.local",
			"DHTNODE_MQTT_CLIENT_ID":      "node-1",
		})),
	).Load()
	require.NoError(t, err)
	assert.True(t, snap.Strict)
}

func TestLoader_InvalidValueFailsValidation(t *testing.T) {
	_, err := NewLoader("", WithLookupEnv(envMap(map[string]string{"DHTNODE_MQTT_SERVER_PORT": "70000"}))).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt_server_port")
}

func TestLoader_MalformedEnvValue(t *testing.T) {
	_, err := NewLoader("", WithLookupEnv(envMap(map[string]string{"DHTNODE_DHT_TYPE": "DHT99"}))).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSensorType))

	_, err = NewLoader("", WithLookupEnv(envMap(map[string]string{"DHTNODE_DHT_PIN": "four"}))).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DHTNODE_DHT_PIN")
}

func TestLoader_MissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLoader(filepath.Join(dir, "missing.yaml"), WithLookupEnv(envMap(nil))).Load()
	require.Error(t, err)

	_, err = NewLoader("", WithEnvFile(filepath.Join(dir, "missing.env")), WithLookupEnv(envMap(nil))).Load()
	require.Error(t, err)

	_, err = NewLoader(filepath.Join(dir, "node.json"), WithLookupEnv(envMap(nil))).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}
