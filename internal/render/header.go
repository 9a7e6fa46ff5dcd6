// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/dhtnode/internal/config"
)

// DefaultGuard is the include guard used when HeaderOptions.Guard is true
// and no explicit name is given.
const DefaultGuard = "DHTNODE_CONFIG_H"

// HeaderOptions controls optional decorations around the macro block.
type HeaderOptions struct {
	Guard     bool   // wrap in #ifndef/#define/#endif
	GuardName string // defaults to DefaultGuard
	Banner    string // leading comment line(s), e.g. a "generated" notice
}

// Header renders config.h for a resolved configuration. Every option the
// variant declares is emitted once, grouped under its comment line, with
// macro names aligned within the group.
func Header(v config.Variant, cfg config.DeviceConfig, opts HeaderOptions) ([]byte, error) {
	reg, err := config.GetRegistry()
	if err != nil {
		return nil, err
	}

	type line struct{ macro, value string }
	type group struct {
		name  string
		lines []line
		width int
	}

	var groups []*group
	byName := make(map[string]*group)
	for _, e := range reg.Entries {
		if !v.Declares(e.Key) {
			continue
		}
		val, ok := cfg.Value(e.Key)
		if !ok {
			return nil, fmt.Errorf("variant %s declares %s but the configuration has no value", v.ID, e.Key)
		}
		lit, err := Literal(e.Kind, val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}

		g, ok := byName[e.Group]
		if !ok {
			g = &group{name: e.Group}
			byName[e.Group] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, line{macro: e.Macro, value: lit})
		if len(e.Macro) > g.width {
			g.width = len(e.Macro)
		}
	}

	guard := opts.GuardName
	if guard == "" {
		guard = DefaultGuard
	}

	var b bytes.Buffer
	if opts.Banner != "" {
		for _, l := range strings.Split(strings.TrimRight(opts.Banner, "\n"), "\n") {
			b.WriteString("// " + l + "\n")
		}
		b.WriteString("\n")
	}
	if opts.Guard {
		fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	}
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("// " + g.name + "\n")
		for _, l := range g.lines {
			fmt.Fprintf(&b, "#define %-*s %s\n", g.width, l.macro, l.value)
		}
	}
	if opts.Guard {
		fmt.Fprintf(&b, "\n#endif // %s\n", guard)
	}
	return b.Bytes(), nil
}

// Literal formats a value as a C token of the given kind.
func Literal(kind config.Kind, val any) (string, error) {
	switch kind {
	case config.KindString:
		s, ok := val.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", val)
		}
		return QuoteC(s), nil
	case config.KindInt:
		n, ok := val.(int)
		if !ok {
			return "", fmt.Errorf("expected int, got %T", val)
		}
		return strconv.Itoa(n), nil
	case config.KindSymbol:
		s := fmt.Sprint(val)
		if !isIdentifier(s) {
			return "", fmt.Errorf("%q is not a C identifier", s)
		}
		return s, nil
	default:
		return "", fmt.Errorf("unknown kind %q", kind)
	}
}

// QuoteC returns s as a C string literal. Non-printable bytes use three-digit
// octal escapes so that a following digit cannot extend the escape.
//
// Validate rejects NUL and line breaks in string options, but Header accepts
// any DeviceConfig, so QuoteC escapes them rather than trusting its caller.
func QuoteC(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '?':
			// Keeps "??x" from forming a trigraph.
			if i+1 < len(s) && s[i+1] == '?' {
				b.WriteString(`\?`)
			} else {
				b.WriteByte(c)
			}
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Fingerprint returns the hex SHA-256 of rendered output.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Output is a rendered header together with its fingerprint.
type Output struct {
	Variant     string
	Header      []byte
	Fingerprint string
}

// Snapshot renders a loaded snapshot.
func Snapshot(snap config.Snapshot, opts HeaderOptions) (Output, error) {
	h, err := Header(snap.Variant, snap.Device, opts)
	if err != nil {
		return Output{}, err
	}
	return Output{Variant: snap.Variant.ID, Header: h, Fingerprint: Fingerprint(h)}, nil
}
