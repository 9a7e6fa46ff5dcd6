// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
)

// ChangeSummary describes the result of comparing two DeviceConfigs.
type ChangeSummary struct {
	ChangedKeys []string // Registry keys whose value or presence changed
}

// Empty reports whether nothing changed.
func (s ChangeSummary) Empty() bool {
	return len(s.ChangedKeys) == 0
}

// Diff compares two configurations and returns a summary of changes in registry order.
func Diff(old, next DeviceConfig) ChangeSummary {
	var summary ChangeSummary
	for _, e := range MustRegistry().Entries {
		ov, oOK := old.Value(e.Key)
		nv, nOK := next.Value(e.Key)
		if oOK != nOK || !reflect.DeepEqual(ov, nv) {
			summary.ChangedKeys = append(summary.ChangedKeys, e.Key)
		}
	}
	return summary
}

// ValueChange is one default that differs between two variants.
type ValueChange struct {
	Key  string `json:"key"`
	From any    `json:"from"`
	To   any    `json:"to"`
}

// VariantDiff relates two variants: options added and removed going from
// From to To, and defaults that changed for options both declare.
type VariantDiff struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
	Changed []ValueChange `json:"changed"`
}

// Empty reports whether both variants are interchangeable.
func (d VariantDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffVariants compares the declared options and defaults of two variants.
func DiffVariants(from, to Variant) VariantDiff {
	d := VariantDiff{
		From:    from.ID,
		To:      to.ID,
		Added:   []string{},
		Removed: []string{},
		Changed: []ValueChange{},
	}
	for _, key := range MustRegistry().Keys() {
		inFrom, inTo := from.Declares(key), to.Declares(key)
		switch {
		case inFrom && !inTo:
			d.Removed = append(d.Removed, key)
		case !inFrom && inTo:
			d.Added = append(d.Added, key)
		case inFrom && inTo:
			fv, _ := from.Default(key)
			tv, _ := to.Default(key)
			if !reflect.DeepEqual(fv, tv) {
				d.Changed = append(d.Changed, ValueChange{Key: key, From: fv, To: tv})
			}
		}
	}
	return d
}
