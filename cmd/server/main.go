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

// ProfileBeam Analytics Sync Service
//
// Entry point for the activity synchronization service. It:
//  1. Loads multi-tenant configuration from config.yaml
//  2. Connects to PostgreSQL (credentials) and Redis (cache + event queue)
//  3. Builds an authenticated analytics client per tenant
//  4. Serves notification, report, status, metadata, and export endpoints
//  5. Runs the periodic report scheduler
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/profilebeam/gasync/internal/analytics"
	"github.com/profilebeam/gasync/internal/cache"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/credstore"
	"github.com/profilebeam/gasync/internal/export"
	"github.com/profilebeam/gasync/internal/httpapi"
	"github.com/profilebeam/gasync/internal/metadata"
	"github.com/profilebeam/gasync/internal/stream"
	"github.com/profilebeam/gasync/internal/sync"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting analytics sync service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tenants", len(cfg.Tenants),
		"report_interval", cfg.ReportInterval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

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

	store := cache.New(rdb)
	publisher := stream.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Per-tenant pipelines ---
	var tenants []*httpapi.Tenant
	var runners []*sync.ReportRunner

	for _, tenant := range cfg.Tenants {
		// Config-provided keys are pushed into the store so the rest of
		// the pipeline has one source of credential truth.
		keyJSON := tenant.KeyJSON
		if keyJSON != "" {
			if err := creds.SaveKey(ctx, tenant.ID, keyJSON); err != nil {
				slog.Error("failed to store tenant key", "tenant", tenant.Alias, "error", err)
				os.Exit(1)
			}
		} else {
			keyJSON, err = creds.GetKey(ctx, tenant.ID)
			if err != nil {
				slog.Error("credential lookup failed", "tenant", tenant.Alias, "error", err)
				os.Exit(1)
			}
		}
		if keyJSON == "" {
			slog.Warn("tenant has no credentials, skipping", "tenant", tenant.Alias)
			continue
		}

		httpClient, err := analytics.NewHTTPClient(ctx, []byte(keyJSON))
		if err != nil {
			slog.Error("failed to build authenticated client",
				"tenant", tenant.Alias, "error", err)
			os.Exit(1)
		}

		client := analytics.NewClient(analytics.ClientConfig{
			HTTPClient: httpClient,
			ViewID:     tenant.Settings.ViewID,
		})

		orchestrator := sync.NewOrchestrator(sync.OrchestratorConfig{
			Tenant:      tenant,
			Cache:       store,
			Client:      client,
			Emitter:     publisher,
			Credentials: creds,
			Logger:      logger,
		})

		runner := sync.NewReportRunner(sync.ReportRunnerConfig{
			Tenant:      tenant,
			Client:      client,
			Emitter:     publisher,
			Credentials: creds,
			Logger:      logger,
		})
		runners = append(runners, runner)

		tenants = append(tenants, &httpapi.Tenant{
			Config:       tenant,
			Orchestrator: orchestrator,
			Reports:      runner,
			Exports:      export.NewProcessor(tenant, store, client, publisher, logger),
			Metadata:     metadata.NewResolver(tenant, client, store),
		})
	}

	if len(tenants) == 0 {
		slog.Error("no tenants could be initialised")
		os.Exit(1)
	}

	// --- HTTP API ---
	handler := httpapi.NewHandler(tenants, store, cfg.ExportDir)
	handler.Health = func(ctx context.Context) error {
		if err := publisher.Ping(ctx); err != nil {
			return err
		}
		return pgPool.Ping(ctx)
	}

	ready, err := httpapi.Serve(ctx, cfg.Port, handler)
	if err != nil {
		slog.Error("failed to start service server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Report Scheduler ---
	scheduler := sync.NewScheduler(runners, cfg.ReportInterval)
	go scheduler.Run(ctx)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel() // Stop the scheduler and the HTTP server

	rdb.Close()
	pgPool.Close()

	slog.Info("analytics sync service stopped")
}
