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

package sync

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/mapper"
	"github.com/profilebeam/gasync/internal/models"
)

// Report triggers.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// MaxReportMetrics is the hard cap of the bulk report endpoint.
const MaxReportMetrics = 10

// operatorIsMissing is the only filter operator the runner honors.
const operatorIsMissing = "IS_MISSING"

// ReportClient runs one page of a bulk report. Implemented by
// analytics.Client.
type ReportClient interface {
	RunReport(ctx context.Context, req models.ReportRequest) models.ApiResult[models.ReportRequest, models.ReportResponse]
}

// ReportRunner executes the periodic bulk report for one tenant and emits
// the resulting events against anonymous identities.
type ReportRunner struct {
	tenant  config.TenantConfig
	client  ReportClient
	emitter Emitter
	creds   CredentialStore
	mapper  *mapper.Mapper
	logger  *slog.Logger
	now     func() time.Time
}

// ReportRunnerConfig holds the dependencies of a report runner.
type ReportRunnerConfig struct {
	Tenant      config.TenantConfig
	Client      ReportClient
	Emitter     Emitter
	Credentials CredentialStore
	Logger      *slog.Logger
}

// NewReportRunner creates the report runner for one tenant.
func NewReportRunner(cfg ReportRunnerConfig) *ReportRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("tenant", cfg.Tenant.Alias)

	return &ReportRunner{
		tenant:  cfg.Tenant,
		client:  cfg.Client,
		emitter: cfg.Emitter,
		creds:   cfg.Credentials,
		mapper:  mapper.NewMapper(cfg.Tenant.Settings, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one report cycle. Misconfiguration is a successful no-op
// logged at debug level; only a mid-run page failure halts the cursor loop.
// The return value reports whether the cycle finished without a failed page.
func (r *ReportRunner) Run(ctx context.Context, trigger string) bool {
	settings := r.tenant.Settings

	if trigger == TriggerSchedule && !settings.PeriodicReportEnabled {
		r.logger.Debug("report skipped: periodic reports disabled", "trigger", trigger)
		return true
	}
	if len(settings.ReportMetrics) == 0 {
		r.logger.Debug("report skipped: no metrics configured")
		return true
	}
	if len(settings.ReportMetrics) > MaxReportMetrics {
		r.logger.Debug("report skipped: too many metrics",
			"metrics", len(settings.ReportMetrics), "max", MaxReportMetrics)
		return true
	}
	if len(settings.ReportDimensions) == 0 {
		r.logger.Debug("report skipped: no dimensions configured")
		return true
	}
	if settings.ReportAnonymousIDDimension == "" {
		r.logger.Debug("report skipped: no anonymous-ID dimension configured")
		return true
	}
	if !slices.Contains(settings.ReportDimensions, settings.ReportAnonymousIDDimension) {
		r.logger.Debug("report skipped: anonymous-ID dimension not among dimensions",
			"dimension", settings.ReportAnonymousIDDimension)
		return true
	}

	now := r.now().UTC()
	dateRange := models.DateRange{
		StartDate: now.AddDate(0, 0, -1).Format("2006-01-02"),
		EndDate:   now.Format("2006-01-02"),
	}

	request := models.ReportRequest{
		ViewID:           settings.ViewID,
		Dimensions:       settings.ReportDimensions,
		DimensionFilters: r.dimensionFilters(),
		Metrics:          settings.ReportMetrics,
		DateRange:        dateRange,
	}

	r.logger.Info("report run starting",
		"trigger", trigger,
		"start_date", dateRange.StartDate,
		"end_date", dateRange.EndDate,
	)

	totalRows := 0
	pages := 0
	for {
		result := r.client.RunReport(ctx, request)
		if !result.Success {
			r.logger.Error("report page failed",
				"page", pages,
				"error", result.Error,
				"details", result.ErrorDetails,
			)
			return false
		}
		pages++

		events := r.mapper.MapReportRows(dateRange, result.Data.Rows)
		for _, re := range events {
			if err := r.emitter.EmitEvent(ctx, r.tenant.ID, re.Identity, re.Event); err != nil {
				r.logger.Error("report event emission failed",
					"event_id", re.Event.Context.EventID,
					"error", err,
				)
				continue
			}
			totalRows++
		}

		if result.Data.NextPageToken == "" {
			break
		}
		request.PageToken = result.Data.NextPageToken
	}

	if err := r.creds.RecordReportRun(ctx, r.tenant.ID, trigger, totalRows); err != nil {
		r.logger.Warn("report bookkeeping failed", "error", err)
	}

	r.logger.Info("report run finished",
		"trigger", trigger,
		"pages", pages,
		"events_emitted", totalRows,
	)
	return true
}

// dimensionFilters maps the configured IS_MISSING filters onto the report
// request. IS_MISSING on the anonymous-ID dimension translates to an
// inverted empty-value match: drop rows whose identifier is unset.
func (r *ReportRunner) dimensionFilters() []models.DimensionFilter {
	var filters []models.DimensionFilter
	for _, f := range r.tenant.Settings.ReportAnonymousIDFilters {
		if f.Operator != operatorIsMissing || !f.Logical {
			continue
		}
		filters = append(filters, models.DimensionFilter{
			DimensionName: r.tenant.Settings.ReportAnonymousIDDimension,
			Operator:      "REGEXP",
			Expressions:   []string{"^$"},
			Not:           true,
		})
	}
	return filters
}
