// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrUnknownVariant is returned when a variant ID is not in the catalogue.
	ErrUnknownVariant = errors.New("unknown config variant")

	// ErrUndeclaredKey is returned when an overlay sets an option the selected
	// variant does not declare.
	ErrUndeclaredKey = errors.New("option not declared by variant")

	// ErrVariantMismatch is returned when the requested variant and the
	// overlay's variant field disagree.
	ErrVariantMismatch = errors.New("variant mismatch")

	// ErrDowngrade is returned when migrating an overlay to an older variant.
	ErrDowngrade = errors.New("variant downgrade not supported")

	// ErrUnknownSensorType is returned for DHT types outside the supported set.
	ErrUnknownSensorType = errors.New("unknown sensor type")
)
