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

// ProfileBeam Analytics Sync — Batch Backfill Command
//
// Standalone CLI tool that pushes a saved notification batch through the
// enrichment pipeline, or triggers a manual report run. Intended for
// seeding data on new deployments and for replaying missed deliveries.
//
// Usage:
//
//	go run ./cmd/backfill/ --tenant <alias> --input notifications.json
//	go run ./cmd/backfill/ --tenant <alias> --report
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/profilebeam/gasync/internal/analytics"
	"github.com/profilebeam/gasync/internal/cache"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/credstore"
	"github.com/profilebeam/gasync/internal/models"
	"github.com/profilebeam/gasync/internal/stream"
	"github.com/profilebeam/gasync/internal/sync"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	tenantFlag := flag.String("tenant", "", "Tenant alias to backfill (required)")
	inputFlag := flag.String("input", "", "Path to a JSON notification batch")
	reportFlag := flag.Bool("report", false, "Trigger a manual report run instead of a notification batch")
	flag.Parse()

	if *tenantFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: --tenant is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *inputFlag == "" && !*reportFlag {
		fmt.Fprintf(os.Stderr, "Error: either --input or --report is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Find the requested tenant
	var tenant *config.TenantConfig
	for i := range cfg.Tenants {
		if cfg.Tenants[i].Alias == *tenantFlag {
			tenant = &cfg.Tenants[i]
			break
		}
	}
	if tenant == nil {
		slog.Error("tenant not found in configuration", "alias", *tenantFlag)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	creds, err := credstore.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise credential store", "error", err)
		os.Exit(1)
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	store := cache.New(rdb)
	publisher := stream.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Resolve credentials ---
	keyJSON := tenant.KeyJSON
	if keyJSON != "" {
		if err := creds.SaveKey(ctx, tenant.ID, keyJSON); err != nil {
			slog.Error("failed to store tenant key", "error", err)
			os.Exit(1)
		}
	} else {
		keyJSON, err = creds.GetKey(ctx, tenant.ID)
		if err != nil {
			slog.Error("credential lookup failed", "error", err)
			os.Exit(1)
		}
	}
	if keyJSON == "" {
		slog.Error("tenant has no credentials", "tenant", tenant.Alias)
		os.Exit(1)
	}

	httpClient, err := analytics.NewHTTPClient(ctx, []byte(keyJSON))
	if err != nil {
		slog.Error("failed to build authenticated client", "error", err)
		os.Exit(1)
	}

	client := analytics.NewClient(analytics.ClientConfig{
		HTTPClient: httpClient,
		ViewID:     tenant.Settings.ViewID,
	})

	// --- Manual report run ---
	if *reportFlag {
		runner := sync.NewReportRunner(sync.ReportRunnerConfig{
			Tenant:      *tenant,
			Client:      client,
			Emitter:     publisher,
			Credentials: creds,
			Logger:      logger,
		})
		if !runner.Run(ctx, sync.TriggerManual) {
			slog.Error("report run failed")
			os.Exit(1)
		}
		slog.Info("report run complete", "tenant", tenant.Alias)
		return
	}

	// --- Notification batch replay ---
	data, err := os.ReadFile(*inputFlag)
	if err != nil {
		slog.Error("failed to read input file", "path", *inputFlag, "error", err)
		os.Exit(1)
	}

	var batch models.NotificationBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		slog.Error("failed to parse input file", "path", *inputFlag, "error", err)
		os.Exit(1)
	}

	slog.Info("starting batch backfill",
		"tenant", tenant.Alias,
		"messages", len(batch.Messages),
	)

	orchestrator := sync.NewOrchestrator(sync.OrchestratorConfig{
		Tenant:      *tenant,
		Cache:       store,
		Client:      client,
		Emitter:     publisher,
		Credentials: creds,
		Logger:      logger,
	})

	// Backfills run as batch operations: segment filters and the
	// per-profile rate limit are bypassed.
	if !orchestrator.SyncProfiles(ctx, batch.Messages, true) {
		slog.Error("backfill aborted")
		os.Exit(1)
	}

	slog.Info("backfill complete", "tenant", tenant.Alias, "messages", len(batch.Messages))
}
