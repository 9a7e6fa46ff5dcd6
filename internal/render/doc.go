// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package render turns resolved device configurations into the artifacts a
// firmware build consumes: the config.h header, example overlays and the
// option reference table. Output is deterministic for identical input.
package render
