// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"reflect"
	"sync"
)

// Kind is the C representation of an option value.
type Kind string

const (
	KindString Kind = "string" // quoted C string literal
	KindInt    Kind = "int"    // decimal integer literal
	KindSymbol Kind = "symbol" // bare identifier (e.g. DHT11)
)

// Header groups, in the order they appear in config.h.
const (
	GroupVersion    = "Code version"
	GroupWiFi       = "WiFi Credentials"
	GroupBroker     = "MQTT Broker address/port"
	GroupBrokerAuth = "MQTT Broker credentials"
	GroupOTA        = "OTA credentials"
	GroupQoS        = "MQTT QOS (0 or 1)"
	GroupSensor     = "DHT pin and type"
	GroupNTP        = "NTP server address"
	GroupBuffer     = "Size of JSON message buffer, for MQTT"
	GroupTopics     = "MQTT Topics"
)

// ConfigEntry defines a single configuration option's metadata.
type ConfigEntry struct {
	Key       string // canonical option key, also the YAML key (e.g. "wifi_ssid")
	Macro     string // C macro emitted into config.h (e.g. "WIFI_SSID")
	Env       string // environment override (e.g. "DHTNODE_WIFI_SSID")
	FieldPath string // DeviceConfig field path (e.g. "WiFi.SSID")
	Kind      Kind
	Group     string
	Sensitive bool // masked in dumps, logs and published hashes
	Optional  bool // not declared by every variant; pointer-typed in DeviceConfig
	Default   any  // common default; variants may override
	Doc       string
}

// Registry manages the configuration surface inventory.
type Registry struct {
	Entries []ConfigEntry // declaration order == header order
	ByKey   map[string]ConfigEntry
	ByMacro map[string]ConfigEntry
	ByEnv   map[string]ConfigEntry
	ByField map[string]ConfigEntry
}

var (
	globalRegistry    *Registry
	globalRegistryErr error
	registryOnce      sync.Once
)

// GetRegistry returns the global configuration registry.
// It returns an error if the registry contains duplicates or is otherwise invalid.
func GetRegistry() (*Registry, error) {
	registryOnce.Do(func() {
		globalRegistry, globalRegistryErr = buildRegistry(registryEntries())
	})
	return globalRegistry, globalRegistryErr
}

// MustRegistry is GetRegistry for callers that run after the registry was
// validated at startup or in tests.
func MustRegistry() *Registry {
	r, err := GetRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func registryEntries() []ConfigEntry {
	return []ConfigEntry{
		{Key: "firmware_version", Macro: "FIRMWARE_VERSION", Env: "DHTNODE_FIRMWARE_VERSION", FieldPath: "Firmware.Version", Kind: KindString, Group: GroupVersion, Optional: true,
			Doc: "Free-form string identifying the firmware build."},

		{Key: "wifi_ssid", Macro: "WIFI_SSID", Env: "DHTNODE_WIFI_SSID", FieldPath: "WiFi.SSID", Kind: KindString, Group: GroupWiFi, Default: "",
			Doc: "WiFi network name."},
		{Key: "wifi_password", Macro: "WIFI_PASSWORD", Env: "DHTNODE_WIFI_PASSWORD", FieldPath: "WiFi.Password", Kind: KindString, Group: GroupWiFi, Sensitive: true, Default: "",
			Doc: "WiFi passphrase."},

		{Key: "mqtt_server_address", Macro: "MQTT_SERVER_ADDRESS", Env: "DHTNODE_MQTT_SERVER_ADDRESS", FieldPath: "MQTT.ServerAddress", Kind: KindString, Group: GroupBroker, Default: "",
			Doc: "Broker hostname or IP address."},
		{Key: "mqtt_server_port", Macro: "MQTT_SERVER_PORT", Env: "DHTNODE_MQTT_SERVER_PORT", FieldPath: "MQTT.ServerPort", Kind: KindInt, Group: GroupBroker, Default: 1883,
			Doc: "Broker TCP port."},

		{Key: "mqtt_client_id", Macro: "MQTT_CLIENT_ID", Env: "DHTNODE_MQTT_CLIENT_ID", FieldPath: "MQTT.ClientID", Kind: KindString, Group: GroupBrokerAuth, Default: "",
			Doc: "MQTT client identifier."},
		{Key: "mqtt_username", Macro: "MQTT_USERNAME", Env: "DHTNODE_MQTT_USERNAME", FieldPath: "MQTT.Username", Kind: KindString, Group: GroupBrokerAuth, Default: "",
			Doc: "MQTT username (device access token on ThingsBoard-style brokers)."},
		{Key: "mqtt_password", Macro: "MQTT_PASSWORD", Env: "DHTNODE_MQTT_PASSWORD", FieldPath: "MQTT.Password", Kind: KindString, Group: GroupBrokerAuth, Sensitive: true, Default: "",
			Doc: "MQTT password."},

		{Key: "ota_password", Macro: "OTA_PASSWORD", Env: "DHTNODE_OTA_PASSWORD", FieldPath: "OTA.Password", Kind: KindString, Group: GroupOTA, Sensitive: true, Optional: true,
			Doc: "Credential gating over-the-air firmware updates."},

		{Key: "mqtt_qos_level", Macro: "MQTT_QOS_LEVEL", Env: "DHTNODE_MQTT_QOS_LEVEL", FieldPath: "MQTT.QoS", Kind: KindInt, Group: GroupQoS, Optional: true,
			Doc: "Delivery guarantee: 0 at-most-once, 1 at-least-once."},

		{Key: "dht_pin", Macro: "DHT_PIN", Env: "DHTNODE_DHT_PIN", FieldPath: "Sensor.Pin", Kind: KindInt, Group: GroupSensor, Default: 2,
			Doc: "GPIO wired to the sensor data line."},
		{Key: "dht_type", Macro: "DHT_TYPE", Env: "DHTNODE_DHT_TYPE", FieldPath: "Sensor.Type", Kind: KindSymbol, Group: GroupSensor, Default: SensorDHT11,
			Doc: "Sensor model symbol."},

		{Key: "ntp_server", Macro: "NTP_SERVER", Env: "DHTNODE_NTP_SERVER", FieldPath: "NTP.Server", Kind: KindString, Group: GroupNTP, Default: "",
			Doc: "Time synchronisation server hostname."},

		{Key: "msg_buffer_size", Macro: "MSG_BUFFER_SIZE", Env: "DHTNODE_MSG_BUFFER_SIZE", FieldPath: "Message.BufferSize", Kind: KindInt, Group: GroupBuffer, Default: 100,
			Doc: "Bytes reserved for one serialized telemetry message."},

		{Key: "mqtt_telemetry_topic", Macro: "MQTT_TELEMETRY_TOPIC", Env: "DHTNODE_MQTT_TELEMETRY_TOPIC", FieldPath: "Topics.Telemetry", Kind: KindString, Group: GroupTopics, Default: "v1/devices/me/telemetry",
			Doc: "Publish topic for sensor readings."},
		{Key: "mqtt_attribute_topic", Macro: "MQTT_ATTRIBUTE_TOPIC", Env: "DHTNODE_MQTT_ATTRIBUTE_TOPIC", FieldPath: "Topics.Attribute", Kind: KindString, Group: GroupTopics, Optional: true,
			Doc: "Publish topic for device attribute reports."},
	}
}

func buildRegistry(entries []ConfigEntry) (*Registry, error) {
	r := &Registry{
		ByKey:   make(map[string]ConfigEntry),
		ByMacro: make(map[string]ConfigEntry),
		ByEnv:   make(map[string]ConfigEntry),
		ByField: make(map[string]ConfigEntry),
	}

	for _, e := range entries {
		if e.Key == "" || e.Macro == "" || e.FieldPath == "" {
			return nil, fmt.Errorf("incomplete registry entry: %+v", e)
		}
		switch e.Kind {
		case KindString, KindInt, KindSymbol:
		default:
			return nil, fmt.Errorf("registry entry %s: unknown kind %q", e.Key, e.Kind)
		}
		if _, dup := r.ByKey[e.Key]; dup {
			return nil, fmt.Errorf("duplicate registry key: %s", e.Key)
		}
		if _, dup := r.ByMacro[e.Macro]; dup {
			return nil, fmt.Errorf("duplicate registry macro: %s", e.Macro)
		}
		if _, dup := r.ByField[e.FieldPath]; dup {
			return nil, fmt.Errorf("duplicate registry field: %s", e.FieldPath)
		}
		if e.Env != "" {
			if _, dup := r.ByEnv[e.Env]; dup {
				return nil, fmt.Errorf("duplicate registry env: %s", e.Env)
			}
			r.ByEnv[e.Env] = e
		}
		r.ByKey[e.Key] = e
		r.ByMacro[e.Macro] = e
		r.ByField[e.FieldPath] = e
		r.Entries = append(r.Entries, e)
	}

	if err := r.ValidateFieldCoverage(); err != nil {
		return nil, err
	}
	if err := r.validateFileCoverage(); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the entry for key.
func (r *Registry) Lookup(key string) (ConfigEntry, bool) {
	e, ok := r.ByKey[key]
	return e, ok
}

// Keys returns every registered key in declaration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Groups returns the header groups in first-appearance order.
func (r *Registry) Groups() []string {
	var groups []string
	seen := make(map[string]struct{})
	for _, e := range r.Entries {
		if _, ok := seen[e.Group]; ok {
			continue
		}
		seen[e.Group] = struct{}{}
		groups = append(groups, e.Group)
	}
	return groups
}

// ValidateFieldCoverage uses reflection to ensure every leaf field of
// DeviceConfig is registered, and that optional entries map to pointer fields.
func (r *Registry) ValidateFieldCoverage() error {
	t := reflect.TypeOf(DeviceConfig{})
	seen := make(map[string]struct{})
	if err := r.validateStruct("", t, seen); err != nil {
		return err
	}
	for field := range r.ByField {
		if _, ok := seen[field]; !ok {
			return fmt.Errorf("registry field %q does not exist in DeviceConfig", field)
		}
	}
	return nil
}

func (r *Registry) validateStruct(prefix string, t reflect.Type, seen map[string]struct{}) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		fieldPath := f.Name
		if prefix != "" {
			fieldPath = prefix + "." + f.Name
		}

		if f.Type.Kind() == reflect.Struct {
			if err := r.validateStruct(fieldPath, f.Type, seen); err != nil {
				return err
			}
			continue
		}

		entry, ok := r.ByField[fieldPath]
		if !ok {
			return fmt.Errorf("field %q is not registered in the config registry", fieldPath)
		}
		if entry.Optional != (f.Type.Kind() == reflect.Ptr) {
			return fmt.Errorf("field %q: optional=%v but pointer=%v", fieldPath, entry.Optional, f.Type.Kind() == reflect.Ptr)
		}
		seen[fieldPath] = struct{}{}
	}
	return nil
}

// validateFileCoverage ensures every key has a matching FileConfig field.
func (r *Registry) validateFileCoverage() error {
	idx := fileFieldIndex()
	for _, e := range r.Entries {
		if _, ok := idx[e.Key]; !ok {
			return fmt.Errorf("registry key %q has no overlay field", e.Key)
		}
	}
	if len(idx) != len(r.Entries) {
		return fmt.Errorf("overlay declares %d keys, registry %d", len(idx), len(r.Entries))
	}
	return nil
}
