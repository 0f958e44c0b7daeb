// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the runtime settings of the situ binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/situ8/situ/clustering"
)

// Config is the process configuration read from SITU_* environment variables.
type Config struct {
	HTTPAddress string
	// MetricsAddress is where `situ consume` exposes /metrics; serve uses HTTPAddress.
	MetricsAddress string
	DBPath         string
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaGroup     string
	AmbientSecret  string
	TenantID       string
	Environment    string
	LogLevel       string
	BatchLimit     int
}

// IsProduction reports whether SITU_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads the environment, falling back to defaults for unset variables.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}

		return def
	}

	cfg := &Config{
		HTTPAddress:    get("SITU_HTTP_ADDRESS", "localhost:8080"),
		MetricsAddress: get("SITU_METRICS_ADDRESS", "localhost:9464"),
		DBPath:         get("SITU_DB_PATH", "data/situ.duckdb"),
		KafkaBrokers:   splitList(get("SITU_KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     get("SITU_KAFKA_TOPIC", "activity_events"),
		KafkaGroup:     get("SITU_KAFKA_GROUP", "situ-ingest"),
		AmbientSecret:  get("SITU_AMBIENT_SECRET", ""),
		TenantID:       get("SITU_TENANT_ID", "default"),
		Environment:    get("SITU_ENV", "development"),
		LogLevel:       get("SITU_LOG_LEVEL", "info"),
	}

	limit, err := strconv.Atoi(get("SITU_BATCH_LIMIT", "500"))
	if err != nil {
		return nil, fmt.Errorf("parsing SITU_BATCH_LIMIT: %w", err)
	}

	if limit <= 0 {
		return nil, fmt.Errorf("SITU_BATCH_LIMIT must be positive, got %d", limit)
	}

	cfg.BatchLimit = limit

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("SITU_KAFKA_BROKERS lists no broker")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// LoadClusterFile reads clustering overrides from a YAML file. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadClusterFile(path string) (*clustering.Overrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var o clustering.Overrides

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing cluster config %s: %w", path, err)
	}

	return &o, nil
}
