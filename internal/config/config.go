// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ReportFilter restricts the anonymous-ID dimension of the periodic report.
// Only IS_MISSING with the logical flag is honored by the report runner;
// other operators load fine and are ignored at run time.
type ReportFilter struct {
	Operator string `yaml:"operator" validate:"required"`
	Logical  bool   `yaml:"logical"`
}

// TenantSettings holds the per-tenant connector settings that drive the
// sync pipeline.
type TenantSettings struct {
	ViewID        string `yaml:"view_id" validate:"required"`
	AccountID     string `yaml:"account_id"`
	WebPropertyID string `yaml:"webproperty_id"`

	// Segment filtering for incremental traffic. The sentinel "ALL"
	// matches every profile.
	SynchronizedSegments []string `yaml:"synchronized_segments"`

	// Identifier lookup.
	LookupAnonymousIDs       bool   `yaml:"lookup_anonymous_ids"`
	LookupAnonymousIDsPrefix string `yaml:"lookup_anonymous_ids_prefix"`
	LookupAttribute          string `yaml:"lookup_attribute"`
	LookupAttributeUserID    string `yaml:"lookup_attribute_userid"`

	// Inbound export processing.
	InboundParseEnabled bool `yaml:"inbound_parse_enabled"`

	// Periodic bulk reports.
	PeriodicReportEnabled      bool           `yaml:"periodic_report_enabled"`
	ReportMetrics              []string       `yaml:"report_metrics"`
	ReportDimensions           []string       `yaml:"report_dimensions"`
	ReportAnonymousIDDimension string         `yaml:"report_anonymous_id_dimension"`
	ReportAnonymousIDFilters   []ReportFilter `yaml:"report_anonymous_id_filters" validate:"dive"`
}

// ProfileStoreConfig identifies the downstream profile store a tenant
// emits to. Stashed in the cache for the inbound export endpoint.
type ProfileStoreConfig struct {
	ID           string `yaml:"id"`
	Secret       string `yaml:"secret"`
	Organization string `yaml:"organization"`
}

// TenantConfig holds credentials and settings for a single tenant.
type TenantConfig struct {
	ID           string             `yaml:"id" validate:"required"`
	Alias        string             `yaml:"alias"`
	KeyJSON      string             `yaml:"key_json"`
	Settings     TenantSettings     `yaml:"settings"`
	ProfileStore ProfileStoreConfig `yaml:"profile_store"`
}

// Config holds all configuration for the sync service.
type Config struct {
	Tenants []TenantConfig `validate:"dive"`

	// Periodic report scheduling.
	ReportInterval time.Duration

	// Redis
	RedisURL    string
	EventsQueue string

	// Postgres
	DatabaseURL string

	// Inbound export uploads.
	ExportDir string

	// Server
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Tenants []TenantConfig `yaml:"tenants"`
	Redis   struct {
		URL    string `yaml:"url"`
		Queues struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		ReportInterval: envOrDefaultDuration("REPORT_INTERVAL", time.Hour),
		RedisURL:       firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		EventsQueue:    firstNonEmpty(raw.Redis.Queues.Events, envOrDefault("EVENTS_QUEUE", "profile_events")),
		DatabaseURL:    firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		ExportDir:      envOrDefault("EXPORT_DIR", "./exports"),
		Port:           envOrDefaultInt("PORT", 8080),
	}

	for _, t := range raw.Tenants {
		// Skip tenants with empty credentials (commented out in YAML)
		if t.ID == "" {
			continue
		}

		if t.Alias == "" {
			t.Alias = t.ID
		}

		cfg.Tenants = append(cfg.Tenants, t)
	}

	if len(cfg.Tenants) == 0 {
		return nil, fmt.Errorf("no tenants configured — check config.yaml and environment variables")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
