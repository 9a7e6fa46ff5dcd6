// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileConfig is one configuration layer: a YAML overlay, a .env file, the
// process environment or a variant's defaults. Every option is a pointer so
// that "unset" and "explicitly empty" stay distinguishable. Field order
// follows the registry.
type FileConfig struct {
	Variant string `yaml:"variant,omitempty" json:"variant,omitempty"`

	FirmwareVersion    *string     `yaml:"firmware_version,omitempty" json:"firmware_version,omitempty"`
	WiFiSSID           *string     `yaml:"wifi_ssid,omitempty" json:"wifi_ssid,omitempty"`
	WiFiPassword       *string     `yaml:"wifi_password,omitempty" json:"wifi_password,omitempty"`
	MQTTServerAddress  *string     `yaml:"mqtt_server_address,omitempty" json:"mqtt_server_address,omitempty"`
	MQTTServerPort     *int        `yaml:"mqtt_server_port,omitempty" json:"mqtt_server_port,omitempty"`
	MQTTClientID       *string     `yaml:"mqtt_client_id,omitempty" json:"mqtt_client_id,omitempty"`
	MQTTUsername       *string     `yaml:"mqtt_username,omitempty" json:"mqtt_username,omitempty"`
	MQTTPassword       *string     `yaml:"mqtt_password,omitempty" json:"mqtt_password,omitempty"`
	OTAPassword        *string     `yaml:"ota_password,omitempty" json:"ota_password,omitempty"`
	MQTTQoSLevel       *int        `yaml:"mqtt_qos_level,omitempty" json:"mqtt_qos_level,omitempty"`
	DHTPin             *int        `yaml:"dht_pin,omitempty" json:"dht_pin,omitempty"`
	DHTType            *SensorType `yaml:"dht_type,omitempty" json:"dht_type,omitempty"`
	NTPServer          *string     `yaml:"ntp_server,omitempty" json:"ntp_server,omitempty"`
	MsgBufferSize      *int        `yaml:"msg_buffer_size,omitempty" json:"msg_buffer_size,omitempty"`
	MQTTTelemetryTopic *string     `yaml:"mqtt_telemetry_topic,omitempty" json:"mqtt_telemetry_topic,omitempty"`
	MQTTAttributeTopic *string     `yaml:"mqtt_attribute_topic,omitempty" json:"mqtt_attribute_topic,omitempty"`
}

var (
	fileIndexOnce sync.Once
	fileIndex     map[string]int
)

// fileFieldIndex maps option keys to FileConfig field indices via yaml tags.
func fileFieldIndex() map[string]int {
	fileIndexOnce.Do(func() {
		fileIndex = make(map[string]int)
		t := reflect.TypeOf(FileConfig{})
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Type.Kind() != reflect.Ptr {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			fileIndex[name] = i
		}
	})
	return fileIndex
}

func (f *FileConfig) field(key string) (reflect.Value, error) {
	i, ok := fileFieldIndex()[key]
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownConfigField, key)
	}
	return reflect.ValueOf(f).Elem().Field(i), nil
}

// Get returns the value of key and whether the layer sets it.
func (f FileConfig) Get(key string) (any, bool) {
	v, err := f.field(key)
	if err != nil || v.IsNil() {
		return nil, false
	}
	return v.Elem().Interface(), true
}

// Set assigns key. Strings are parsed for int and symbol options.
func (f *FileConfig) Set(key string, value any) error {
	v, err := f.field(key)
	if err != nil {
		return err
	}
	elemType := v.Type().Elem()

	converted, err := convertValue(key, value, elemType)
	if err != nil {
		return err
	}
	ptr := reflect.New(elemType)
	ptr.Elem().Set(converted)
	v.Set(ptr)
	return nil
}

// Clear unsets key.
func (f *FileConfig) Clear(key string) {
	if v, err := f.field(key); err == nil {
		v.Set(reflect.Zero(v.Type()))
	}
}

// SetKeys returns the keys this layer sets, in registry order.
func (f FileConfig) SetKeys() []string {
	var keys []string
	for _, e := range MustRegistry().Entries {
		if _, ok := f.Get(e.Key); ok {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

func convertValue(key string, value any, target reflect.Type) (reflect.Value, error) {
	if s, ok := value.(string); ok {
		switch {
		case target == reflect.TypeOf(SensorType("")):
			st, err := ParseSensorType(s)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%s: %w", key, err)
			}
			return reflect.ValueOf(st), nil
		case target.Kind() == reflect.Int:
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%s: invalid integer %q", key, s)
			}
			return reflect.ValueOf(n), nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return reflect.Value{}, fmt.Errorf("%s: nil value", key)
	}
	if val.Type() == target {
		return val, nil
	}
	if val.Type().ConvertibleTo(target) && val.Kind() != reflect.String && target.Kind() != reflect.String {
		return val.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("%s: type mismatch: expected %v, got %v", key, target, val.Type())
}

// ParseFileConfig decodes a YAML overlay with STRICT parsing: unknown keys,
// multiple documents and trailing content are rejected.
func ParseFileConfig(data []byte) (FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return FileConfig{}, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return FileConfig{}, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return fileCfg, nil
}

// LoadFile reads and strictly parses a YAML overlay.
func LoadFile(path string) (FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return FileConfig{}, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- overlay paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read file: %w", err)
	}
	return ParseFileConfig(data)
}

// MarshalFileConfig encodes an overlay as YAML in registry order.
func MarshalFileConfig(cfg FileConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
