// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// configgen regenerates the files derived from the configuration registry:
// the options table in docs/CONFIGURATION.md, the overlay JSON schema, one
// example overlay per variant and one default config.h per variant.
//
// With -check it writes nothing and exits 1 when any file is stale.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/render"
)

const (
	configDocPath    = "docs/CONFIGURATION.md"
	configSchemaPath = "docs/config.schema.json"
	examplePathFmt   = "configs/%s.example.yaml"
	headerPathFmt    = "include/%s/config.h"

	generatedBanner = "Generated by cmd/configgen. Do not edit."
)

func main() {
	check := flag.Bool("check", false, "report stale generated files instead of writing them")
	root := flag.String("root", ".", "repository root")
	flag.Parse()

	stale, err := generate(context.Background(), *root, *check, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
	if *check && len(stale) > 0 {
		fmt.Fprintf(os.Stderr, "configgen: %d generated file(s) out of date, run `go run ./cmd/configgen`\n", len(stale))
		os.Exit(1)
	}
}

type artifact struct {
	path string
	data []byte
}

// generate renders every artifact and writes the ones that changed. In check
// mode nothing is written. It returns the relative paths that differed.
func generate(ctx context.Context, root string, check bool, out io.Writer) ([]string, error) {
	artifacts, err := buildArtifacts(root)
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, a := range artifacts {
		full := filepath.Join(root, a.path)
		if check {
			// #nosec G304 -- paths are fixed relative to the repository root
			current, err := os.ReadFile(full)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			if !bytes.Equal(current, a.data) {
				stale = append(stale, a.path)
				fmt.Fprintf(out, "stale: %s\n", a.path)
			}
			continue
		}

		changed, err := render.WriteIfChanged(ctx, full, a.data)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", a.path, err)
		}
		if changed {
			stale = append(stale, a.path)
			fmt.Fprintf(out, "wrote %s\n", a.path)
		}
	}
	return stale, nil
}

func buildArtifacts(root string) ([]artifact, error) {
	variants := config.Variants()

	doc, err := buildConfigDoc(root, variants)
	if err != nil {
		return nil, err
	}
	schema, err := buildSchema(variants)
	if err != nil {
		return nil, err
	}
	artifacts := []artifact{
		{path: configDocPath, data: doc},
		{path: configSchemaPath, data: schema},
	}

	for _, v := range variants {
		example, err := render.ExampleYAML(v)
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", v.ID, err)
		}
		header, err := render.Header(v, v.Defaults(), render.HeaderOptions{
			Guard:  true,
			Banner: generatedBanner,
		})
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", v.ID, err)
		}
		artifacts = append(artifacts,
			artifact{path: fmt.Sprintf(examplePathFmt, v.ID), data: example},
			artifact{path: fmt.Sprintf(headerPathFmt, v.ID), data: header},
		)
	}
	return artifacts, nil
}

func buildConfigDoc(root string, variants []config.Variant) ([]byte, error) {
	// #nosec G304 -- fixed path under the repository root
	raw, err := os.ReadFile(filepath.Join(root, configDocPath))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config doc: %w", err)
		}
		raw = []byte("# Configuration")
	}

	generated, err := render.DocsTable(variants)
	if err != nil {
		return nil, fmt.Errorf("build config doc: %w", err)
	}
	return []byte(render.ReplaceGeneratedSection(string(raw), generated)), nil
}

// buildSchema describes the overlay format. Defaults are per variant, so they
// are listed under x-defaults instead of default.
func buildSchema(variants []config.Variant) ([]byte, error) {
	reg, err := config.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("get registry: %w", err)
	}

	props := map[string]any{
		"variant": map[string]any{
			"type":        "string",
			"enum":        config.VariantIDs(),
			"description": "Configuration variant this overlay targets.",
		},
	}
	for _, e := range reg.Entries {
		prop := map[string]any{"description": e.Doc}
		switch e.Kind {
		case config.KindInt:
			prop["type"] = "integer"
			if lo, hi, ok := config.IntBounds(e.Key); ok {
				prop["minimum"] = lo
				prop["maximum"] = hi
			}
		case config.KindSymbol:
			types := config.SensorTypes()
			enum := make([]string, 0, len(types))
			for _, st := range types {
				enum = append(enum, st.String())
			}
			prop["type"] = "string"
			prop["enum"] = enum
		default:
			prop["type"] = "string"
		}
		if e.Sensitive {
			prop["writeOnly"] = true
		}

		defaults := map[string]any{}
		for _, v := range variants {
			if def, ok := v.Default(e.Key); ok {
				defaults[v.ID] = def
			}
		}
		prop["x-defaults"] = defaults
		props[e.Key] = prop
	}

	schema := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                "dhtnode configuration overlay",
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
