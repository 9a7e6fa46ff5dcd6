// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ManuGH/dhtnode/internal/config"
	"gopkg.in/yaml.v3"
)

// ExampleYAML renders an overlay that sets every option the variant declares
// to its default, each preceded by its documentation. Loading it back yields
// the variant's defaults.
// Only scalars go through the yaml encoder.
func ExampleYAML(v config.Variant) ([]byte, error) {
	reg, err := config.GetRegistry()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# dhtnode overlay for variant %s.\n", v.ID)
	fmt.Fprintf(&buf, "# %s\n", v.Description)
	buf.WriteString("# Environment variables (DHTNODE_*) override values set here.\n")
	fmt.Fprintf(&buf, "variant: %s\n", v.ID)

	lastGroup := ""
	for _, key := range v.Keys() {
		e, _ := reg.Lookup(key)
		def, ok := v.Default(key)
		if !ok {
			return nil, fmt.Errorf("variant %s: no default for %s", v.ID, key)
		}
		val, err := yamlScalar(def)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}

		if e.Group != lastGroup {
			fmt.Fprintf(&buf, "\n# -- %s --\n", e.Group)
			lastGroup = e.Group
		}
		buf.WriteString("# " + e.Doc)
		if e.Sensitive {
			buf.WriteString(" (secret)")
		}
		buf.WriteByte('\n')
		fmt.Fprintf(&buf, "%s: %s\n", key, val)
	}
	return buf.Bytes(), nil
}

// yamlScalar encodes a single default value as a flow scalar.
func yamlScalar(v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(string(out), "\n")
	if strings.Contains(s, "\n") {
		return "", fmt.Errorf("value %v does not fit on one line", v)
	}
	return s, nil
}
