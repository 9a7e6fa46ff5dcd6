// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/render"
)

func runVariants(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("variants", stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if *asJSON {
		type entry struct {
			ID          string   `json:"id"`
			Description string   `json:"description"`
			Keys        []string `json:"keys"`
		}
		out := make([]entry, 0, len(config.Variants()))
		for _, v := range config.Variants() {
			out = append(out, entry{ID: v.ID, Description: v.Description, Keys: v.Keys()})
		}
		return writeJSONOut(stdout, stderr, out)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPTIONS\tDESCRIPTION")
	for _, v := range config.Variants() {
		marker := ""
		if v.ID == config.DefaultVariantID {
			marker = " (default)"
		}
		fmt.Fprintf(tw, "%s%s\t%d\t%s\n", v.ID, marker, len(v.Keys()), v.Description)
	}
	_ = tw.Flush()
	return exitOK
}

func runRender(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("render", stderr)
	lf := addLoaderFlags(fs)
	out := fs.String("out", "", "write the header to this path instead of stdout")
	out2 := fs.String("o", "", "write the header to this path (shorthand)")
	guard := fs.Bool("guard", false, "wrap the header in an include guard")
	guardName := fs.String("guard-name", render.DefaultGuard, "include guard macro")
	banner := fs.String("banner", "", "comment line placed above the header")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *out == "" {
		*out = *out2
	}

	snap, ok := lf.load(fs, stderr)
	if !ok {
		return exitError
	}
	header, err := render.Header(snap.Variant, snap.Device, render.HeaderOptions{
		Guard:     *guard,
		GuardName: *guardName,
		Banner:    *banner,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Render error: %v\n", err)
		return exitError
	}

	if *out == "" {
		_, _ = stdout.Write(header)
		return exitOK
	}
	changed, err := render.WriteIfChanged(ctx, *out, header)
	if err != nil {
		fmt.Fprintf(stderr, "Write error: %v\n", err)
		return exitError
	}
	status := "unchanged"
	if changed {
		status = "written"
	}
	fmt.Fprintf(stdout, "%s %s (variant %s, sha256 %s)\n", *out, status, snap.Variant.ID, render.Fingerprint(header))
	return exitOK
}

func runValidate(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("validate", stderr)
	lf := addLoaderFlags(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	snap, ok := lf.load(fs, stderr)
	if !ok {
		return exitError
	}
	target := lf.file
	if target == "" {
		target = "configuration"
	}
	mode := ""
	if snap.Strict {
		mode = ", strict"
	}
	fmt.Fprintf(stdout, "✓ %s is valid (variant %s%s)\n", target, snap.Variant.ID, mode)
	return exitOK
}

func runDump(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("dump", stderr)
	lf := addLoaderFlags(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	showSources := fs.Bool("sources", false, "include the layer each value came from")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	*format = strings.ToLower(strings.TrimSpace(*format))
	if *format != "yaml" && *format != "json" {
		fmt.Fprintf(stderr, "Error: unsupported --format %q (want yaml or json)\n", *format)
		return exitUsage
	}

	snap, ok := lf.load(fs, stderr)
	if !ok {
		return exitError
	}
	values := config.Masked(snap.Device)

	if *format == "json" {
		doc := map[string]any{"variant": snap.Variant.ID, "values": values}
		if *showSources {
			doc["sources"] = snap.Sources
		}
		return writeJSONOut(stdout, stderr, doc)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalar("variant"), scalar(snap.Variant.ID))
	for _, key := range snap.Variant.Keys() {
		v := &yaml.Node{}
		if err := v.Encode(values[key]); err != nil {
			fmt.Fprintf(stderr, "Encode error: %v\n", err)
			return exitError
		}
		if *showSources {
			v.LineComment = "from " + string(snap.Sources[key])
		}
		root.Content = append(root.Content, scalar(key), v)
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		fmt.Fprintf(stderr, "Encode error: %v\n", err)
		return exitError
	}
	_ = enc.Close()
	return exitOK
}

func runDiff(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("diff", stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "Usage: dhtcfg diff [--json] <from> <to>")
		return exitUsage
	}

	from, err := config.LookupVariant(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	to, err := config.LookupVariant(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	d := config.DiffVariants(from, to)
	if *asJSON {
		return writeJSONOut(stdout, stderr, d)
	}
	if d.Empty() {
		fmt.Fprintf(stdout, "%s and %s are identical\n", d.From, d.To)
		return exitOK
	}
	fmt.Fprintf(stdout, "%s -> %s\n", d.From, d.To)
	for _, key := range d.Added {
		fmt.Fprintf(stdout, "  + %s\n", key)
	}
	for _, key := range d.Removed {
		fmt.Fprintf(stdout, "  - %s\n", key)
	}
	for _, c := range d.Changed {
		fmt.Fprintf(stdout, "  ~ %s: %v -> %v\n", c.Key, c.From, c.To)
	}
	return exitOK
}

func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("migrate", stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML overlay file")
	fs.StringVar(&file, "f", "", "path to YAML overlay file (shorthand)")
	target := fs.String("to", "", "target variant")
	write := fs.Bool("write", false, "rewrite the overlay file in place")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if file == "" || *target == "" {
		fmt.Fprintln(stderr, "Usage: dhtcfg migrate -f overlay.yaml --to <variant> [--write]")
		return exitUsage
	}

	cfg, err := config.LoadFile(file)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", file, err)
		return exitError
	}
	migrated, changes, err := config.MigrateFileConfig(cfg, *target)
	if err != nil {
		fmt.Fprintf(stderr, "Migration error: %v\n", err)
		return exitError
	}
	for _, c := range changes {
		fmt.Fprintf(stderr, "  %s\n", c)
	}

	data, err := config.MarshalFileConfig(migrated)
	if err != nil {
		fmt.Fprintf(stderr, "Encode error: %v\n", err)
		return exitError
	}
	if !*write {
		_, _ = stdout.Write(data)
		return exitOK
	}
	if err := render.WriteFile(ctx, file, data); err != nil {
		fmt.Fprintf(stderr, "Write error: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "%s migrated to %s (%d changes)\n", file, migrated.Variant, len(changes))
	return exitOK
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func writeJSONOut(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Encode error: %v\n", err)
		return exitError
	}
	return exitOK
}
