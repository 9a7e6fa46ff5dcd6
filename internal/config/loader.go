// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Environment keys that steer the loader itself.
const (
	EnvVariant = "DHTNODE_VARIANT"
	EnvStrict  = "DHTNODE_CONFIG_STRICT"

	envPrefix = "DHTNODE_"
)

// Loader resolves a Snapshot with precedence: ENV > YAML overlay > .env > variant defaults.
type Loader struct {
	configPath string
	envFile    string
	variantID  string
	strict     *bool
	lookupEnv  func(string) (string, bool)
	logger     zerolog.Logger

	consumedMu      sync.Mutex
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithVariant pins the variant. An overlay naming a different variant is rejected.
func WithVariant(id string) LoaderOption {
	return func(l *Loader) { l.variantID = strings.TrimSpace(id) }
}

// WithEnvFile reads a .env file as the lowest-precedence overlay.
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) { l.envFile = path }
}

// WithStrict forces strict validation on or off, ignoring DHTNODE_CONFIG_STRICT.
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) { l.strict = &strict }
}

// WithLookupEnv replaces os.LookupEnv, mainly for tests.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) { l.lookupEnv = fn }
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath string, opts ...LoaderOption) *Loader {
	l := &Loader{
		configPath:      configPath,
		lookupEnv:       os.LookupEnv,
		logger:          log.WithComponent("config"),
		ConsumedEnvKeys: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConfigPath returns the overlay path the loader reads, if any.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

func (l *Loader) envLookup(key string) (string, bool) {
	l.consumedMu.Lock()
	l.ConsumedEnvKeys[key] = struct{}{}
	l.consumedMu.Unlock()
	return l.lookupEnv(key)
}

// Load resolves, merges and validates the configuration.
// Order: Parse .env -> Parse File (Strict) -> Select Variant -> Apply Env -> Validate
func (l *Loader) Load() (Snapshot, error) {
	// 1. .env overlay (never exported into the process environment)
	var dotenv map[string]string
	if l.envFile != "" {
		m, err := godotenv.Read(l.envFile)
		if err != nil {
			return Snapshot{}, fmt.Errorf("read env file: %w", err)
		}
		dotenv = m
	}

	// 2. YAML overlay
	var fileCfg FileConfig
	if l.configPath != "" {
		fc, err := LoadFile(l.configPath)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load config file: %w", err)
		}
		fileCfg = fc
	}

	// 3. Variant selection
	variant, err := l.selectVariant(fileCfg, dotenv)
	if err != nil {
		return Snapshot{}, err
	}

	// 4. Layers
	l.warnUnknownEnvKeys(dotenv)
	dotenvLayer, err := layerFromEnv(func(k string) (string, bool) {
		v, ok := dotenv[k]
		return v, ok
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("env file: %w", err)
	}
	envLayer, err := layerFromEnv(l.envLookup)
	if err != nil {
		return Snapshot{}, fmt.Errorf("environment: %w", err)
	}

	merged, sources, err := mergeLayers(
		layer{source: SourceDefault, cfg: variant.DefaultLayer()},
		layer{source: SourceDotenv, cfg: dotenvLayer},
		layer{source: SourceFile, cfg: fileCfg},
		layer{source: SourceEnv, cfg: envLayer},
	)
	if err != nil {
		return Snapshot{}, err
	}

	cfg, err := variant.Resolve(merged)
	if err != nil {
		return Snapshot{}, err
	}

	// 5. Validate
	strict := l.strictMode(dotenv)
	if err := Validate(cfg, strict); err != nil {
		return Snapshot{}, fmt.Errorf("validate config: %w", err)
	}

	l.logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str(log.FieldVariant, variant.ID).
		Str(log.FieldConfigPath, l.configPath).
		Bool("strict", strict).
		Int("overrides", countOverrides(sources)).
		Msg("configuration loaded")

	return Snapshot{
		Variant: variant,
		Device:  cfg,
		Sources: sources,
		Strict:  strict,
	}, nil
}

// selectVariant applies: explicit option > overlay variant > DHTNODE_VARIANT > default.
func (l *Loader) selectVariant(fileCfg FileConfig, dotenv map[string]string) (Variant, error) {
	fileID := strings.TrimSpace(fileCfg.Variant)
	if l.variantID != "" {
		v, err := LookupVariant(l.variantID)
		if err != nil {
			return Variant{}, err
		}
		if fileID != "" && !strings.EqualFold(fileID, v.ID) {
			return Variant{}, fmt.Errorf("%w: requested %s, %s declares %s", ErrVariantMismatch, v.ID, l.configPath, fileID)
		}
		return v, nil
	}
	if fileID != "" {
		return LookupVariant(fileID)
	}
	if id, ok := l.envLookup(EnvVariant); ok && strings.TrimSpace(id) != "" {
		return LookupVariant(id)
	}
	if id, ok := dotenv[EnvVariant]; ok && strings.TrimSpace(id) != "" {
		return LookupVariant(id)
	}
	return LookupVariant(DefaultVariantID)
}

func (l *Loader) strictMode(dotenv map[string]string) bool {
	if l.strict != nil {
		return *l.strict
	}
	raw, ok := l.envLookup(EnvStrict)
	if !ok || raw == "" {
		raw, ok = dotenv[EnvStrict]
	}
	if !ok || raw == "" {
		return false
	}
	b, valid := parseBoolString(raw)
	if !valid {
		l.logger.Warn().
			Str(log.FieldKey, EnvStrict).
			Str("value", raw).
			Msg("invalid boolean for strict mode, using false")
	}
	return b
}

// warnUnknownEnvKeys flags DHTNODE_* entries in a .env file that match no option.
func (l *Loader) warnUnknownEnvKeys(dotenv map[string]string) {
	reg := MustRegistry()
	for k := range dotenv {
		if !strings.HasPrefix(k, envPrefix) || k == EnvVariant || k == EnvStrict {
			continue
		}
		if _, ok := reg.ByEnv[k]; !ok {
			l.logger.Warn().
				Str(log.FieldEvent, "config.unknown_env_key").
				Str(log.FieldKey, k).
				Str(log.FieldSource, string(SourceDotenv)).
				Msg("env file key does not match any option")
		}
	}
}

// layerFromEnv builds a layer from the registry's env keys. Empty values count as unset.
func layerFromEnv(lookup func(string) (string, bool)) (FileConfig, error) {
	var out FileConfig
	for _, e := range MustRegistry().Entries {
		raw, ok := lookup(e.Env)
		if !ok || raw == "" {
			continue
		}
		if err := out.Set(e.Key, raw); err != nil {
			return FileConfig{}, fmt.Errorf("%s: %w", e.Env, err)
		}
	}
	return out, nil
}

func countOverrides(sources map[string]Source) int {
	n := 0
	for _, s := range sources {
		if s != SourceDefault {
			n++
		}
	}
	return n
}
