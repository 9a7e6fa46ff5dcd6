// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"reflect"
	"strings"
)

// EffectiveFileVariant resolves the variant an overlay targets. Overlays
// without a variant field belong to the default variant.
func EffectiveFileVariant(cfg FileConfig) string {
	if id := strings.ToLower(strings.TrimSpace(cfg.Variant)); id != "" {
		return id
	}
	return DefaultVariantID
}

// MigrateFileConfig moves an overlay forward to the target variant one step at
// a time. Each step drops options the next variant no longer declares and
// carries firmware_version forward when it still holds the old default.
// It returns the updated config and a list of change descriptions.
func MigrateFileConfig(cfg FileConfig, target string) (FileConfig, []string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return cfg, nil, fmt.Errorf("target variant is required")
	}
	to, err := LookupVariant(target)
	if err != nil {
		return cfg, nil, err
	}
	from, err := LookupVariant(EffectiveFileVariant(cfg))
	if err != nil {
		return cfg, nil, err
	}

	start, end := variantIndex(from.ID), variantIndex(to.ID)
	if end < start {
		return cfg, nil, fmt.Errorf("%w: %s -> %s", ErrDowngrade, from.ID, to.ID)
	}

	out := cloneLayer(cfg)
	var changes []string
	for i := start; i < end; i++ {
		changes = append(changes, migrateStep(&out, catalogue[i], catalogue[i+1])...)
	}
	if out.Variant != to.ID {
		out.Variant = to.ID
		changes = append(changes, fmt.Sprintf("set variant to %s", to.ID))
	}
	return out, changes, nil
}

func migrateStep(cfg *FileConfig, from, to Variant) []string {
	var changes []string
	for _, key := range cfg.SetKeys() {
		if to.Declares(key) {
			continue
		}
		cfg.Clear(key)
		changes = append(changes, fmt.Sprintf("%s -> %s: removed %s (no longer declared)", from.ID, to.ID, key))
	}

	const fwKey = "firmware_version"
	cur, ok := cfg.Get(fwKey)
	if !ok || !to.Declares(fwKey) {
		return changes
	}
	oldDef, _ := from.Default(fwKey)
	newDef, _ := to.Default(fwKey)
	if reflect.DeepEqual(cur, oldDef) && !reflect.DeepEqual(oldDef, newDef) {
		_ = cfg.Set(fwKey, newDef)
		changes = append(changes, fmt.Sprintf("%s -> %s: %s %v -> %v", from.ID, to.ID, fwKey, oldDef, newDef))
	}
	return changes
}
