// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"github.com/ManuGH/dhtnode/internal/validate"
)

const (
	minDHTPin     = 0
	maxDHTPin     = 39
	minBufferSize = 16
	maxBufferSize = 4096
)

// IntBounds returns the inclusive range Validate enforces for an int option.
func IntBounds(key string) (lo, hi int, ok bool) {
	switch key {
	case "mqtt_server_port":
		return 1, 65535, true
	case "mqtt_qos_level":
		return 0, 1, true
	case "dht_pin":
		return minDHTPin, maxDHTPin, true
	case "msg_buffer_size":
		return minBufferSize, maxBufferSize, true
	}
	return 0, 0, false
}

// Validate checks a resolved configuration. All problems are collected into a
// single validate.ValidationError. Strict mode additionally requires the
// identity options a deployable build cannot do without.
func Validate(cfg DeviceConfig, strict bool) error {
	v := validate.New()

	v.Port("mqtt_server_port", cfg.MQTT.ServerPort)
	if cfg.MQTT.QoS != nil {
		v.Range("mqtt_qos_level", *cfg.MQTT.QoS, 0, 1)
	}
	v.Range("dht_pin", cfg.Sensor.Pin, minDHTPin, maxDHTPin)
	if !cfg.Sensor.Type.Valid() {
		v.AddError("dht_type", "unknown sensor type", cfg.Sensor.Type)
	}
	v.Range("msg_buffer_size", cfg.Message.BufferSize, minBufferSize, maxBufferSize)

	v.MQTTTopic("mqtt_telemetry_topic", cfg.Topics.Telemetry)
	if cfg.Topics.Attribute != nil {
		v.MQTTTopic("mqtt_attribute_topic", *cfg.Topics.Attribute)
	}

	v.Host("mqtt_server_address", cfg.MQTT.ServerAddress)
	v.Host("ntp_server", cfg.NTP.Server)

	for _, key := range MustRegistry().Keys() {
		if s, ok := stringValue(cfg, key); ok {
			v.CString(key, s)
		}
	}

	if strict {
		v.NotEmpty("wifi_ssid", cfg.WiFi.SSID)
		v.NotEmpty("mqtt_server_address", cfg.MQTT.ServerAddress)
		v.NotEmpty("mqtt_client_id", cfg.MQTT.ClientID)
	}

	return v.Err()
}

func stringValue(cfg DeviceConfig, key string) (string, bool) {
	val, ok := cfg.Value(key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}
