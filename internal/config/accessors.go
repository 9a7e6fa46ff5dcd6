// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Value returns the value of an option by registry key. The second result is
// false for unknown keys and for optional options that are not declared.
func (c DeviceConfig) Value(key string) (any, bool) {
	entry, ok := MustRegistry().Lookup(key)
	if !ok {
		return nil, false
	}
	f, err := lookupField(reflect.ValueOf(c), entry.FieldPath)
	if err != nil {
		return nil, false
	}
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return nil, false
		}
		f = f.Elem()
	}
	return f.Interface(), true
}

// Present reports whether the option is declared in this configuration.
func (c DeviceConfig) Present(key string) bool {
	_, ok := c.Value(key)
	return ok
}

// Values returns every present option keyed by registry key.
func (c DeviceConfig) Values() map[string]any {
	out := make(map[string]any)
	for _, e := range MustRegistry().Entries {
		if v, ok := c.Value(e.Key); ok {
			out[e.Key] = v
		}
	}
	return out
}

// Layer converts the configuration back into a layer that sets every present option.
func (c DeviceConfig) Layer() FileConfig {
	var layer FileConfig
	for _, e := range MustRegistry().Entries {
		if v, ok := c.Value(e.Key); ok {
			_ = layer.Set(e.Key, v)
		}
	}
	return layer
}

func lookupField(v reflect.Value, fieldPath string) (reflect.Value, error) {
	curr := v
	for _, p := range strings.Split(fieldPath, ".") {
		if curr.Kind() == reflect.Ptr {
			curr = curr.Elem()
		}
		f := curr.FieldByName(p)
		if !f.IsValid() {
			return reflect.Value{}, fmt.Errorf("field %s not found", p)
		}
		curr = f
	}
	return curr, nil
}

func setField(cfg *DeviceConfig, fieldPath string, value any) error {
	parts := strings.Split(fieldPath, ".")
	curr := reflect.ValueOf(cfg).Elem()
	for i, p := range parts {
		f := curr.FieldByName(p)
		if !f.IsValid() {
			return fmt.Errorf("field %s not found", p)
		}

		if i < len(parts)-1 {
			curr = f
			continue
		}

		val := reflect.ValueOf(value)
		target := f
		if f.Kind() == reflect.Ptr {
			f.Set(reflect.New(f.Type().Elem()))
			target = f.Elem()
		}
		if val.Type() != target.Type() {
			if !val.Type().ConvertibleTo(target.Type()) {
				return fmt.Errorf("type mismatch for %s: expected %v, got %v", fieldPath, target.Type(), val.Type())
			}
			val = val.Convert(target.Type())
		}
		target.Set(val)
	}
	return nil
}
