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

// Package sync drives the per-tenant enrichment pipeline: notification
// batches in, normalized events out, plus the periodic bulk report runner.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/profilebeam/gasync/internal/analytics"
	"github.com/profilebeam/gasync/internal/cache"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/filter"
	"github.com/profilebeam/gasync/internal/mapper"
	"github.com/profilebeam/gasync/internal/models"
)

const (
	// RateLimitWindow is how long a profile stays suppressed after an
	// activity search. Batch syncs bypass the window.
	RateLimitWindow = 30 * time.Minute

	// RateLimitTTL is the expiry of the suppression key. Kept equal to the
	// window so expiry alone re-admits the profile.
	RateLimitTTL = 30 * time.Minute

	// rateLimitSuffix tags the per-profile suppression keys.
	rateLimitSuffix = "uas"
)

// ActivityClient fetches per-identifier activity. Implemented by
// analytics.Client.
type ActivityClient interface {
	FetchActivity(ctx context.Context, identifier string, start, end time.Time, idType models.IdentifierType) models.ApiResult[analytics.ActivitySearchRequest, models.ActivityResponse]
}

// Emitter publishes normalized events downstream. Implemented by
// stream.Publisher.
type Emitter interface {
	EmitEvent(ctx context.Context, tenant string, identity map[string]string, event models.NormalizedEvent) error
}

// CredentialStore resolves tenant credential material and records report
// runs. Implemented by credstore.Store.
type CredentialStore interface {
	GetKey(ctx context.Context, tenantID string) (string, error)
	RecordReportRun(ctx context.Context, tenantID, trigger string, rows int) error
}

// Orchestrator runs the enrichment pipeline for one tenant.
type Orchestrator struct {
	tenant  config.TenantConfig
	cache   cache.Store
	client  ActivityClient
	emitter Emitter
	creds   CredentialStore
	filter  *filter.Filter
	builder *mapper.Builder
	mapper  *mapper.Mapper
	logger  *slog.Logger
	now     func() time.Time
}

// OrchestratorConfig holds the dependencies of an orchestrator.
type OrchestratorConfig struct {
	Tenant      config.TenantConfig
	Cache       cache.Store
	Client      ActivityClient
	Emitter     Emitter
	Credentials CredentialStore
	Logger      *slog.Logger
}

// NewOrchestrator creates the enrichment pipeline for one tenant.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("tenant", cfg.Tenant.Alias)

	return &Orchestrator{
		tenant:  cfg.Tenant,
		cache:   cfg.Cache,
		client:  cfg.Client,
		emitter: cfg.Emitter,
		creds:   cfg.Credentials,
		filter:  filter.New(cfg.Tenant.Settings.SynchronizedSegments),
		builder: mapper.NewBuilder(cfg.Tenant.Settings),
		mapper:  mapper.NewMapper(cfg.Tenant.Settings, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// SyncProfiles runs the pipeline over one notification batch. It never
// returns an error: per-profile and per-identifier failures are logged and
// the batch continues. The only false return is the batch-fatal missing
// credential precondition.
func (o *Orchestrator) SyncProfiles(ctx context.Context, messages []models.UserUpdateMessage, isBatch bool) bool {
	keyJSON, err := o.creds.GetKey(ctx, o.tenant.ID)
	if err != nil {
		o.logger.Error("credential lookup failed", "error", err)
		return false
	}
	if keyJSON == "" {
		o.logger.Error("no credentials stored, aborting batch",
			"messages", len(messages))
		return false
	}

	classified := o.filter.Classify(messages, isBatch)

	for _, envelope := range classified.Skip {
		o.logger.Debug("profile skipped",
			"profile_id", envelope.Message.User.ID,
			"operation", envelope.Operation,
			"notes", envelope.Notes,
		)
	}

	for i := range classified.Enrich {
		o.syncProfile(ctx, &classified.Enrich[i], isBatch)
	}

	return true
}

// syncProfile runs rate check, request building, identifier fan-out, and
// event emission for one envelope.
func (o *Orchestrator) syncProfile(ctx context.Context, envelope *models.Envelope, isBatch bool) {
	profile := envelope.Message.User
	rateKey := cache.Key(o.tenant.ID, profile.ID, rateLimitSuffix)

	if !isBatch {
		var lastSearch string
		hit, err := o.cache.Get(ctx, rateKey, &lastSearch)
		if err != nil {
			o.logger.Warn("rate limit lookup failed, proceeding",
				"profile_id", profile.ID, "error", err)
		}
		if hit {
			envelope.Operation = models.OperationSkip
			envelope.Notes = append(envelope.Notes, models.NoteRecentSearch)
			o.logger.Debug("profile skipped",
				"profile_id", profile.ID,
				"operation", envelope.Operation,
				"notes", envelope.Notes,
			)
			return
		}
	}
	envelope.State = models.StateRateChecked

	request := o.builder.BuildActivityRequest(profile)
	if request == nil {
		envelope.Operation = models.OperationSkip
		envelope.Notes = append(envelope.Notes, models.NoteNoClientIDs)
		o.logger.Debug("profile skipped",
			"profile_id", profile.ID,
			"operation", envelope.Operation,
			"notes", envelope.Notes,
		)
		return
	}
	envelope.Request = request

	identity := map[string]string{"id": profile.ID}
	attempted := false
	emitted := 0
	failed := 0

	fetch := func(identifier string, idType models.IdentifierType) {
		attempted = true
		result := o.client.FetchActivity(ctx, identifier, request.StartDate, request.EndDate, idType)
		if !result.Success {
			failed++
			envelope.Notes = append(envelope.Notes, result.Error)
			o.logger.Error("activity search failed",
				"profile_id", profile.ID,
				"identifier_type", idType,
				"error", result.Error,
				"details", result.ErrorDetails,
			)
			return
		}

		for _, event := range o.mapper.MapActivitySessions(result.Data) {
			if err := o.emitter.EmitEvent(ctx, o.tenant.ID, identity, event); err != nil {
				failed++
				o.logger.Error("event emission failed",
					"profile_id", profile.ID,
					"event_id", event.Context.EventID,
					"error", err,
				)
				continue
			}
			emitted++
		}
	}

	for _, clientID := range request.ClientIdentifiers {
		fetch(clientID, models.IdentifierClientID)
	}
	for _, userID := range request.UserIdentifiers {
		fetch(userID, models.IdentifierUserID)
	}

	switch {
	case emitted > 0:
		envelope.State = models.StateEmitted
	case failed > 0:
		envelope.State = models.StateFailed
	default:
		envelope.State = models.StateEnriched
	}

	// The suppression key is refreshed after any attempt, successful or
	// not, so a failing profile cannot hammer the external API.
	if attempted {
		stamp := o.now().UTC().Format(time.RFC3339)
		if err := o.cache.Set(ctx, rateKey, stamp, RateLimitTTL); err != nil {
			o.logger.Warn("rate limit refresh failed",
				"profile_id", profile.ID, "error", err)
		}
	}

	o.logger.Info("profile synchronized",
		"profile_id", profile.ID,
		"state", envelope.State,
		"client_ids", len(request.ClientIdentifiers),
		"user_ids", len(request.UserIdentifiers),
		"events_emitted", emitted,
		"failures", failed,
	)
}
