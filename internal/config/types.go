// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"
)

// SensorType identifies the DHT sensor model wired to the node.
// It is emitted into config.h as a bare symbol (e.g. DHT_TYPE DHT11).
type SensorType string

const (
	SensorDHT11  SensorType = "DHT11"
	SensorDHT12  SensorType = "DHT12"
	SensorDHT21  SensorType = "DHT21"
	SensorDHT22  SensorType = "DHT22"
	SensorAM2301 SensorType = "AM2301"
)

var sensorTypes = []SensorType{SensorDHT11, SensorDHT12, SensorDHT21, SensorDHT22, SensorAM2301}

// SensorTypes returns the supported sensor symbols in declaration order.
func SensorTypes() []SensorType {
	out := make([]SensorType, len(sensorTypes))
	copy(out, sensorTypes)
	return out
}

// ParseSensorType parses a sensor symbol case-insensitively.
func ParseSensorType(s string) (SensorType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range sensorTypes {
		if string(t) == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
}

// Valid reports whether t is one of the supported sensor symbols.
func (t SensorType) Valid() bool {
	for _, known := range sensorTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t SensorType) String() string { return string(t) }

// MarshalText implements encoding.TextMarshaler.
func (t SensorType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SensorType) UnmarshalText(b []byte) error {
	parsed, err := ParseSensorType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DeviceConfig is the typed view of one resolved configuration.
// Pointer fields are optional options; nil means the variant does not declare them.
type DeviceConfig struct {
	Firmware FirmwareConfig `json:"firmware"`
	WiFi     WiFiConfig     `json:"wifi"`
	MQTT     MQTTConfig     `json:"mqtt"`
	OTA      OTAConfig      `json:"ota"`
	Sensor   SensorConfig   `json:"sensor"`
	NTP      NTPConfig      `json:"ntp"`
	Message  MessageConfig  `json:"message"`
	Topics   TopicsConfig   `json:"topics"`
}

type FirmwareConfig struct {
	Version *string `json:"version,omitempty"`
}

type WiFiConfig struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

type MQTTConfig struct {
	ServerAddress string `json:"serverAddress"`
	ServerPort    int    `json:"serverPort"`
	ClientID      string `json:"clientId"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	QoS           *int   `json:"qos,omitempty"` // 0 = at-most-once, 1 = at-least-once
}

type OTAConfig struct {
	Password *string `json:"password,omitempty"`
}

type SensorConfig struct {
	Pin  int        `json:"pin"`
	Type SensorType `json:"type"`
}

type NTPConfig struct {
	Server string `json:"server"`
}

type MessageConfig struct {
	BufferSize int `json:"bufferSize"` // bytes reserved for one serialized MQTT payload
}

type TopicsConfig struct {
	Telemetry string  `json:"telemetry"`
	Attribute *string `json:"attribute,omitempty"`
}

// Snapshot is an immutable, validated configuration together with the variant
// it was resolved against and the layer each option came from.
type Snapshot struct {
	Variant Variant
	Device  DeviceConfig
	Sources map[string]Source
	Strict  bool
}

// Source names the layer an effective option value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceDotenv  Source = "dotenv"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)
