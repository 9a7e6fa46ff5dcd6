// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// dhtcfg renders, validates and distributes the dhtnode build configuration.
//
// Usage:
//
//	dhtcfg <command> [flags]
//
// Exit codes:
//   - 0: success
//   - 1: configuration, render or I/O error
//   - 2: usage error
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, stdout, stderr io.Writer) int
}

func commands() []command {
	return []command{
		{"variants", "list configuration variants", runVariants},
		{"render", "render config.h for the effective configuration", runRender},
		{"validate", "load and validate the effective configuration", runValidate},
		{"dump", "print the effective configuration (secrets masked)", runDump},
		{"diff", "compare two variants", runDiff},
		{"migrate", "move an overlay file forward to a newer variant", runMigrate},
		{"publish", "publish the effective configuration to Redis", runPublish},
		{"serve", "serve rendered headers over HTTP", runServe},
		{"version", "print version information", runVersion},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	log.Configure(log.Config{Output: stderr, Service: "dhtcfg", Version: version.Version})

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	for _, c := range commands() {
		if c.name == args[0] {
			return c.run(ctx, args[1:], stdout, stderr)
		}
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
	printUsage(stderr)
	return exitUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dhtcfg <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.usage)
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("dhtcfg "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// loaderFlags are shared by every command that resolves a configuration.
type loaderFlags struct {
	file     string
	envFile  string
	variant  string
	strict   bool
	logLevel string
}

func addLoaderFlags(fs *flag.FlagSet) *loaderFlags {
	lf := &loaderFlags{}
	fs.StringVar(&lf.file, "file", "", "path to YAML overlay file")
	fs.StringVar(&lf.file, "f", "", "path to YAML overlay file (shorthand)")
	fs.StringVar(&lf.envFile, "env-file", "", "path to .env file")
	fs.StringVar(&lf.variant, "variant", "", "configuration variant (v1, v2, v3)")
	fs.BoolVar(&lf.strict, "strict", false, "require WiFi SSID, broker address and client ID")
	fs.StringVar(&lf.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return lf
}

// parseFlags parses args and reports the exit code to use when parsing stops early.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loader builds a Loader from parsed flags and reconfigures logging.
func (lf *loaderFlags) loader(fs *flag.FlagSet, stderr io.Writer) *config.Loader {
	if lf.logLevel != "" {
		log.Configure(log.Config{Level: lf.logLevel, Output: stderr, Service: "dhtcfg", Version: version.Version})
	}

	var opts []config.LoaderOption
	if v := strings.TrimSpace(lf.variant); v != "" {
		opts = append(opts, config.WithVariant(v))
	}
	if lf.envFile != "" {
		opts = append(opts, config.WithEnvFile(lf.envFile))
	}
	if flagWasSet(fs, "strict") {
		opts = append(opts, config.WithStrict(lf.strict))
	}
	return config.NewLoader(strings.TrimSpace(lf.file), opts...)
}

func (lf *loaderFlags) load(fs *flag.FlagSet, stderr io.Writer) (config.Snapshot, bool) {
	snap, err := lf.loader(fs, stderr).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error%s:\n  %v\n", lf.location(), err)
		return config.Snapshot{}, false
	}
	return snap, true
}

func (lf *loaderFlags) location() string {
	if lf.file == "" {
		return ""
	}
	return " in " + lf.file
}

func runVersion(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("version", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	fmt.Fprintf(stdout, "dhtcfg %s\n", version.String())
	return exitOK
}
