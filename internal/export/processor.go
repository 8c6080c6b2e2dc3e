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

// Package export processes inbound CSV exports of the external analytics
// service: uploaded files are queued as cache descriptors, then drained by
// looking up activity for every exported client ID and emitting events
// against anonymous identities.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/profilebeam/gasync/internal/analytics"
	"github.com/profilebeam/gasync/internal/cache"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/mapper"
	"github.com/profilebeam/gasync/internal/models"
)

// FilesTTL is how long queued file descriptors stay pending before they
// silently expire.
const FilesTTL = time.Hour

const (
	filesSuffix    = "inboundparse_files"
	clientIDColumn = "Client Id"
)

// FileDescriptor points at one uploaded export file on disk.
type FileDescriptor struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
}

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

// Processor drains queued export files for one tenant.
type Processor struct {
	tenant  config.TenantConfig
	store   cache.Store
	client  ActivityClient
	emitter Emitter
	mapper  *mapper.Mapper
	logger  *slog.Logger
	now     func() time.Time

	// mu serializes access to the pending descriptor list, so a
	// concurrent upload cannot be lost to a read-append-write race.
	mu sync.Mutex
}

// NewProcessor creates an export processor for one tenant.
func NewProcessor(tenant config.TenantConfig, store cache.Store, client ActivityClient, emitter Emitter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("tenant", tenant.Alias)

	return &Processor{
		tenant:  tenant,
		store:   store,
		client:  client,
		emitter: emitter,
		mapper:  mapper.NewMapper(tenant.Settings, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// QueueFiles appends descriptors to the tenant's pending set. The set
// expires after FilesTTL, so stale uploads never linger.
func (p *Processor) QueueFiles(ctx context.Context, descriptors []FileDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := cache.Key(p.tenant.ID, filesSuffix)

	var pending []FileDescriptor
	if _, err := p.store.Get(ctx, key, &pending); err != nil {
		return fmt.Errorf("load pending export files: %w", err)
	}
	pending = append(pending, descriptors...)

	if err := p.store.Set(ctx, key, pending, FilesTTL); err != nil {
		return fmt.Errorf("store pending export files: %w", err)
	}

	p.logger.Info("export files queued", "queued", len(descriptors), "pending", len(pending))
	return nil
}

// ProcessPending drains the tenant's pending export files. The pending key
// is deleted, and the files removed, only when every row processed without
// error; otherwise the batch stays queued for a retry until FilesTTL.
func (p *Processor) ProcessPending(ctx context.Context) bool {
	if !p.tenant.Settings.InboundParseEnabled {
		p.logger.Debug("export processing skipped: inbound parse disabled")
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := cache.Key(p.tenant.ID, filesSuffix)
	var pending []FileDescriptor
	hit, err := p.store.Get(ctx, key, &pending)
	if err != nil {
		p.logger.Error("load pending export files failed", "error", err)
		return false
	}
	if !hit || len(pending) == 0 {
		p.logger.Debug("no pending export files")
		return true
	}

	clean := true
	for _, file := range pending {
		if !isCSV(file) {
			p.logger.Debug("skipping non-CSV export file",
				"file", file.Name, "content_type", file.ContentType)
			continue
		}
		if _, err := os.Stat(file.Path); err != nil {
			p.logger.Debug("skipping missing export file", "file", file.Name, "path", file.Path)
			continue
		}
		if !p.processFile(ctx, file) {
			clean = false
		}
	}

	if !clean {
		p.logger.Warn("export batch had errors, keeping it queued", "files", len(pending))
		return false
	}

	if _, err := p.store.Delete(ctx, key); err != nil {
		p.logger.Error("clear pending export files failed", "error", err)
		return false
	}
	for _, file := range pending {
		if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("remove export file failed", "path", file.Path, "error", err)
		}
	}

	p.logger.Info("export batch processed", "files", len(pending))
	return true
}

func (p *Processor) processFile(ctx context.Context, file FileDescriptor) bool {
	f, err := os.Open(file.Path)
	if err != nil {
		p.logger.Error("open export file failed", "file", file.Name, "error", err)
		return false
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		p.logger.Error("read export header failed", "file", file.Name, "error", err)
		return false
	}

	clientIDIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), clientIDColumn) {
			clientIDIdx = i
			break
		}
	}
	if clientIDIdx < 0 {
		p.logger.Error("export file has no client ID column", "file", file.Name)
		return false
	}

	end := p.now().UTC()
	start := end.Add(-mapper.ActivityLookback)

	clean := true
	rows := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Error("read export row failed", "file", file.Name, "error", err)
			clean = false
			break
		}
		if clientIDIdx >= len(row) {
			continue
		}
		clientID := strings.TrimSpace(row[clientIDIdx])
		if clientID == "" {
			continue
		}
		rows++
		if !p.processClientID(ctx, clientID, start, end) {
			clean = false
		}
	}

	p.logger.Info("export file processed", "file", file.Name, "rows", rows, "clean", clean)
	return clean
}

// processClientID looks up recent activity for one exported client ID and
// emits the events against the matching anonymous identity.
func (p *Processor) processClientID(ctx context.Context, clientID string, start, end time.Time) bool {
	result := p.client.FetchActivity(ctx, clientID, start, end, models.IdentifierClientID)
	if !result.Success {
		p.logger.Error("export activity search failed",
			"client_id", clientID,
			"error", result.Error,
			"details", result.ErrorDetails,
		)
		return false
	}

	identity := map[string]string{"anonymous_id": "ga:" + clientID}
	clean := true
	for _, event := range p.mapper.MapActivitySessions(result.Data) {
		if err := p.emitter.EmitEvent(ctx, p.tenant.ID, identity, event); err != nil {
			p.logger.Error("export event emission failed",
				"client_id", clientID,
				"event_id", event.Context.EventID,
				"error", err,
			)
			clean = false
		}
	}
	return clean
}

func isCSV(file FileDescriptor) bool {
	if strings.Contains(strings.ToLower(file.ContentType), "csv") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(file.Name), ".csv")
}
