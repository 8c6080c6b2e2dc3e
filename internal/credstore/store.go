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

// Package credstore provides a Postgres-backed store for per-tenant
// service-account credentials and periodic report bookkeeping.
package credstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record holds the persisted credential state of one tenant.
type Record struct {
	TenantID          string
	KeyJSON           string
	LastReportRun     *time.Time
	LastReportTrigger string
	LastReportRows    int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Store provides CRUD operations for tenant credentials in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a credential store backed by the given Postgres pool.
// It ensures the tenant_credentials table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure credential schema: %w", err)
	}
	slog.Info("credential store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenant_credentials (
			tenant_id           TEXT PRIMARY KEY,
			key_json            TEXT NOT NULL,
			last_report_run     TIMESTAMPTZ,
			last_report_trigger TEXT DEFAULT '',
			last_report_rows    INTEGER DEFAULT 0,
			created_at          TIMESTAMPTZ DEFAULT NOW(),
			updated_at          TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

// SaveKey inserts or replaces the service-account key of a tenant.
func (s *Store) SaveKey(ctx context.Context, tenantID, keyJSON string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_credentials (tenant_id, key_json)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET
			key_json   = EXCLUDED.key_json,
			updated_at = NOW()
	`, tenantID, keyJSON)
	return err
}

// Get retrieves the credential record of a tenant. A missing tenant yields
// (nil, nil).
func (s *Store) Get(ctx context.Context, tenantID string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT tenant_id, key_json, last_report_run, last_report_trigger,
		       last_report_rows, created_at, updated_at
		FROM tenant_credentials
		WHERE tenant_id = $1
	`, tenantID)
	return scanRecord(row)
}

// GetKey retrieves just the service-account key JSON of a tenant. A missing
// tenant yields an empty string.
func (s *Store) GetKey(ctx context.Context, tenantID string) (string, error) {
	r, err := s.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	return r.KeyJSON, nil
}

// RecordReportRun stores the outcome of a periodic report run.
func (s *Store) RecordReportRun(ctx context.Context, tenantID, trigger string, rows int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tenant_credentials
		SET last_report_run     = NOW(),
		    last_report_trigger = $1,
		    last_report_rows    = $2,
		    updated_at          = NOW()
		WHERE tenant_id = $3
	`, trigger, rows, tenantID)
	return err
}

// Delete removes the credential record of a tenant.
func (s *Store) Delete(ctx context.Context, tenantID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM tenant_credentials WHERE tenant_id = $1
	`, tenantID)
	return err
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.TenantID, &r.KeyJSON, &r.LastReportRun, &r.LastReportTrigger,
		&r.LastReportRows, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
