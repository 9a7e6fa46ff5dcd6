// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package render

import (
	"fmt"
	"strings"

	"github.com/ManuGH/dhtnode/internal/config"
)

// Markers delimiting the generated section of docs/CONFIGURATION.md.
const (
	DocBeginMarker = "<!-- BEGIN GENERATED CONFIG OPTIONS -->"
	DocEndMarker   = "<!-- END GENERATED CONFIG OPTIONS -->"
)

// DocsTable renders the option-by-variant matrix as a markdown section,
// including the begin/end markers.
func DocsTable(variants []config.Variant) (string, error) {
	reg, err := config.GetRegistry()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(DocBeginMarker)
	b.WriteString("\n## Options (Generated)\n\n")
	b.WriteString("This section is generated from `internal/config/registry.go`. Do not edit by hand.\n\n")

	b.WriteString("| Key | Macro | Env | Kind |")
	sep := "| --- | --- | --- | --- |"
	for _, v := range variants {
		b.WriteString(" " + v.ID + " |")
		sep += " --- |"
	}
	b.WriteString("\n" + sep + "\n")

	for _, e := range reg.Entries {
		kind := string(e.Kind)
		if e.Sensitive {
			kind += " (secret)"
		}
		fmt.Fprintf(&b, "| `%s` | `%s` | `%s` | %s |", e.Key, e.Macro, e.Env, kind)
		for _, v := range variants {
			def, ok := v.Default(e.Key)
			if !ok {
				b.WriteString(" - |")
				continue
			}
			lit, err := Literal(e.Kind, def)
			if err != nil {
				return "", fmt.Errorf("%s/%s: %w", v.ID, e.Key, err)
			}
			fmt.Fprintf(&b, " `%s` |", strings.ReplaceAll(lit, "|", `\|`))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n### Variants\n\n")
	for _, v := range variants {
		fmt.Fprintf(&b, "- `%s`: %s\n", v.ID, v.Description)
	}
	b.WriteString("\n")
	b.WriteString(DocEndMarker)
	return b.String(), nil
}

// ReplaceGeneratedSection swaps the marked section of content for generated,
// appending it when the markers are missing.
func ReplaceGeneratedSection(content, generated string) string {
	start := strings.Index(content, DocBeginMarker)
	end := strings.Index(content, DocEndMarker)
	if start == -1 || end == -1 || end < start {
		return content + "\n\n" + generated + "\n"
	}
	end += len(DocEndMarker)
	return content[:start] + generated + content[end:]
}
