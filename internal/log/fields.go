// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent = "event"

	// Configuration fields
	FieldVariant     = "variant"
	FieldKey         = "key"
	FieldSource      = "source"
	FieldConfigPath  = "config_path"
	FieldFingerprint = "fingerprint"

	// HTTP fields
	FieldMethod   = "method"
	FieldRoute    = "route"
	FieldStatus   = "status"
	FieldDuration = "duration"
	FieldRemote   = "remote_addr"
)
