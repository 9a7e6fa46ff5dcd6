// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"

	"github.com/imdario/mergo"
)

// layer is a named FileConfig used while computing precedence.
type layer struct {
	source Source
	cfg    FileConfig
}

// mergeLayers folds layers lowest-precedence first. A non-nil option in a
// later layer replaces the earlier value, explicit "" and 0 included.
// It also reports which layer each effective option came from.
func mergeLayers(layers ...layer) (FileConfig, map[string]Source, error) {
	var merged FileConfig
	sources := make(map[string]Source)
	for _, l := range layers {
		if err := mergo.Merge(&merged, l.cfg, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return FileConfig{}, nil, fmt.Errorf("merge %s layer: %w", l.source, err)
		}
		for _, key := range l.cfg.SetKeys() {
			sources[key] = l.source
		}
	}
	return cloneLayer(merged), sources, nil
}

// cloneLayer detaches the merged result from the input layers' pointers.
func cloneLayer(in FileConfig) FileConfig {
	out := FileConfig{Variant: in.Variant}
	for _, key := range in.SetKeys() {
		v, _ := in.Get(key)
		_ = out.Set(key, v)
	}
	return out
}
