// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config owns the build-time configuration surface of a dhtnode
// firmware image.
//
// Every recognized option is described once in the registry (registry.go).
// A Variant selects which options a firmware generation declares and what
// their defaults are. The Loader layers defaults, an optional .env file, a
// strict YAML overlay and process environment into a validated Snapshot,
// which internal/render turns into a config.h header.
package config
