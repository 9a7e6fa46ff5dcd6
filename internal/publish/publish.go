// SPDX-License-Identifier: MIT

// Package publish distributes resolved configurations through Redis so that
// provisioning tooling can read per-option values and rendered headers
// without running the renderer itself.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/render"
)

const (
	DefaultPrefix  = "dhtnode"
	DefaultChannel = "dhtnode:config"
)

// Config holds Redis connection and layout configuration.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number

	Prefix         string // key prefix, defaults to DefaultPrefix
	Channel        string // notification channel, defaults to DefaultChannel
	IncludeSecrets bool   // publish sensitive options too
	Header         render.HeaderOptions
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	return c
}

// Notice is the JSON message published after every successful write.
type Notice struct {
	Variant     string   `json:"variant"`
	Fingerprint string   `json:"fingerprint"`
	Keys        []string `json:"keys"`
}

// Publisher writes configurations to Redis.
type Publisher struct {
	client *redis.Client
	cfg    Config
	logger zerolog.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	p := NewWithClient(client, cfg)
	p.logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis")
	return p, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, cfg Config) *Publisher {
	return &Publisher{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: log.WithComponent("publish"),
	}
}

// ConfigKey is the hash holding one field per published option.
func (p *Publisher) ConfigKey(variant string) string {
	return p.cfg.Prefix + ":config:" + variant
}

// HeaderKey is the string key holding the rendered config.h.
func (p *Publisher) HeaderKey(variant string) string {
	return p.cfg.Prefix + ":header:" + variant
}

// Publish replaces the stored values and header for a variant in one
// MULTI/EXEC transaction, then announces the change on the channel.
func (p *Publisher) Publish(ctx context.Context, v config.Variant, cfg config.DeviceConfig) (Notice, error) {
	header, err := render.Header(v, cfg, p.cfg.Header)
	if err != nil {
		return Notice{}, fmt.Errorf("render header: %w", err)
	}

	fields, keys, err := p.fields(v, cfg)
	if err != nil {
		return Notice{}, err
	}
	notice := Notice{Variant: v.ID, Fingerprint: render.Fingerprint(header), Keys: keys}

	configKey, headerKey := p.ConfigKey(v.ID), p.HeaderKey(v.ID)
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, configKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, configKey, fields)
		}
		pipe.Set(ctx, headerKey, header, 0)
		return nil
	})
	if err != nil {
		return Notice{}, fmt.Errorf("write %s: %w", configKey, err)
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return Notice{}, fmt.Errorf("encode notice: %w", err)
	}
	if err := p.client.Publish(ctx, p.cfg.Channel, payload).Err(); err != nil {
		return Notice{}, fmt.Errorf("publish notice: %w", err)
	}

	logger := log.WithContext(ctx, p.logger)
	logger.Info().
		Str(log.FieldEvent, "config.published").
		Str(log.FieldVariant, v.ID).
		Str(log.FieldFingerprint, notice.Fingerprint).
		Int("keys", len(keys)).
		Bool("secrets", p.cfg.IncludeSecrets).
		Msg("configuration published")
	return notice, nil
}

// fields flattens declared options into hash fields, skipping secrets unless enabled.
func (p *Publisher) fields(v config.Variant, cfg config.DeviceConfig) (map[string]any, []string, error) {
	reg, err := config.GetRegistry()
	if err != nil {
		return nil, nil, err
	}
	fields := make(map[string]any)
	keys := make([]string, 0, len(reg.Entries))
	for _, key := range v.Keys() {
		e, _ := reg.Lookup(key)
		if e.Sensitive && !p.cfg.IncludeSecrets {
			continue
		}
		val, ok := cfg.Value(key)
		if !ok {
			return nil, nil, fmt.Errorf("variant %s declares %s but the configuration has no value", v.ID, key)
		}
		fields[key] = formatValue(val)
		keys = append(keys, key)
	}
	return fields, keys, nil
}

func formatValue(val any) string {
	switch x := val.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

// Fetch reads back the published values and header for a variant.
// A variant that was never published returns redis.Nil.
func (p *Publisher) Fetch(ctx context.Context, variant string) (map[string]string, []byte, error) {
	header, err := p.client.Get(ctx, p.HeaderKey(variant)).Bytes()
	if err != nil {
		return nil, nil, err
	}
	values, err := p.client.HGetAll(ctx, p.ConfigKey(variant)).Result()
	if err != nil {
		return nil, nil, err
	}
	return values, header, nil
}

// IsNotFound reports whether err means nothing was published.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// HealthCheck checks if Redis is available.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
