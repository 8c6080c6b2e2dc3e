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

// Package httpapi exposes the service endpoints: profile-update
// notifications, manual report triggers, status checks, field metadata,
// and inbound export uploads. Notification handling acknowledges fast and
// processes in the background, since the upstream profile store retries
// slow deliveries.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/profilebeam/gasync/internal/cache"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/export"
	"github.com/profilebeam/gasync/internal/metadata"
	"github.com/profilebeam/gasync/internal/models"
	"github.com/profilebeam/gasync/internal/sync"
)

// CredentialTTL is the expiry of the inbound-parse credential stash. Kept
// above the external service's 30-minute webhook retry horizon.
const CredentialTTL = 35 * time.Minute

const credentialSuffix = "inboundparse"

// Tenant bundles the per-tenant pipeline components the handler routes to.
type Tenant struct {
	Config       config.TenantConfig
	Orchestrator *sync.Orchestrator
	Reports      *sync.ReportRunner
	Exports      *export.Processor
	Metadata     *metadata.Resolver
}

// Handler routes service requests to per-tenant pipelines.
type Handler struct {
	tenants   map[string]*Tenant
	store     cache.Store
	exportDir string

	// Health is the readiness probe behind /health. Nil means always
	// healthy.
	Health func(ctx context.Context) error
}

// NewHandler creates a handler over the registered tenants, keyed by alias.
func NewHandler(tenants []*Tenant, store cache.Store, exportDir string) *Handler {
	byAlias := make(map[string]*Tenant, len(tenants))
	for _, t := range tenants {
		byAlias[t.Config.Alias] = t
	}
	return &Handler{
		tenants:   byAlias,
		store:     store,
		exportDir: exportDir,
	}
}

// tenantFromPath resolves the tenant segment of a path like
// /notifications/{tenant} or /metadata/{tenant}/{kind}.
func (h *Handler) tenantFromPath(path, prefix string) (*Tenant, string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return nil, ""
	}
	tail := ""
	if len(parts) == 2 {
		tail = parts[1]
	}
	return h.tenants[parts[0]], tail
}

// ServeNotifications handles profile-update notification deliveries. It
// acknowledges with 202 immediately and runs the sync in the background.
func (h *Handler) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tenant, _ := h.tenantFromPath(r.URL.Path, "/notifications/")
	if tenant == nil {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read notification body", "error", err)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var batch models.NotificationBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		slog.Warn("notification body not valid JSON",
			"tenant", tenant.Config.Alias,
			"body_len", len(body),
		)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// Respond immediately — the profile store expects a fast ack
	w.WriteHeader(http.StatusAccepted)

	go tenant.Orchestrator.SyncProfiles(context.Background(), batch.Messages, batch.IsBatch)
}

// ServeReports handles manual report triggers: POST /reports/{tenant}.
func (h *Handler) ServeReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tenant, _ := h.tenantFromPath(r.URL.Path, "/reports/")
	if tenant == nil {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	ok := tenant.Reports.Run(r.Context(), sync.TriggerManual)
	writeJSON(w, http.StatusOK, map[string]any{"ok": ok})
}

// ServeStatus handles status checks. When inbound parse is enabled it also
// refreshes the tenant's credential stash, which the export upload path
// relies on.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	tenant, _ := h.tenantFromPath(r.URL.Path, "/status/")
	if tenant == nil {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	var messages []string
	settings := tenant.Config.Settings

	if len(settings.SynchronizedSegments) == 0 {
		messages = append(messages, "no segments are whitelisted, incremental updates will not be synchronized")
	}
	if !settings.LookupAnonymousIDs && settings.LookupAttribute == "" && settings.LookupAttributeUserID == "" {
		messages = append(messages, "no identifier lookup is configured, profiles cannot be enriched")
	}

	if settings.InboundParseEnabled {
		key := cache.Key(tenant.Config.ID, credentialSuffix)
		if err := h.store.Set(r.Context(), key, tenant.Config.ProfileStore, CredentialTTL); err != nil {
			slog.Error("credential stash refresh failed",
				"tenant", tenant.Config.Alias, "error", err)
			messages = append(messages, "credential stash refresh failed")
		}
	}

	status := "ok"
	if len(messages) > 0 {
		status = "warning"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"messages": messages,
	})
}

// ServeMetadata handles field option listings: GET /metadata/{tenant}/{kind}.
func (h *Handler) ServeMetadata(w http.ResponseWriter, r *http.Request) {
	tenant, kind := h.tenantFromPath(r.URL.Path, "/metadata/")
	if tenant == nil {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	schema := tenant.Metadata.Fields(r.Context(), kind)
	writeJSON(w, http.StatusOK, schema)
}

// ServeExport handles inbound export uploads: multipart files are written
// to the export directory, queued for the processor, and drained in the
// background.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tenant, _ := h.tenantFromPath(r.URL.Path, "/export/")
	if tenant == nil {
		http.Error(w, "unknown tenant", http.StatusNotFound)
		return
	}

	if !tenant.Config.Settings.InboundParseEnabled {
		http.Error(w, "inbound parse is not enabled", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart payload", http.StatusBadRequest)
		return
	}

	var descriptors []export.FileDescriptor
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			descriptor, err := h.saveUpload(tenant.Config.Alias, header)
			if err != nil {
				slog.Error("export upload save failed",
					"tenant", tenant.Config.Alias,
					"file", header.Filename,
					"error", err,
				)
				http.Error(w, "upload failed", http.StatusInternalServerError)
				return
			}
			descriptors = append(descriptors, descriptor)
		}
	}

	if len(descriptors) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	if err := tenant.Exports.QueueFiles(r.Context(), descriptors); err != nil {
		slog.Error("export queueing failed", "tenant", tenant.Config.Alias, "error", err)
		http.Error(w, "queueing failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)

	go tenant.Exports.ProcessPending(context.Background())
}

func (h *Handler) saveUpload(alias string, header *multipart.FileHeader) (export.FileDescriptor, error) {
	src, err := header.Open()
	if err != nil {
		return export.FileDescriptor{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(h.exportDir, alias)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return export.FileDescriptor{}, fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String()+"-"+filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return export.FileDescriptor{}, fmt.Errorf("create export file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return export.FileDescriptor{}, fmt.Errorf("write export file: %w", err)
	}

	return export.FileDescriptor{
		Name:        header.Filename,
		Path:        path,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// ServeHealth handles readiness probes.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

// Serve starts the HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before
// starting to accept connections.
func Serve(ctx context.Context, port int, handler *Handler) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications/", handler.ServeNotifications)
	mux.HandleFunc("/reports/", handler.ServeReports)
	mux.HandleFunc("/status/", handler.ServeStatus)
	mux.HandleFunc("/metadata/", handler.ServeMetadata)
	mux.HandleFunc("/export/", handler.ServeExport)
	mux.HandleFunc("/health", handler.ServeHealth)

	server := &http.Server{
		Handler: mux,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind service port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("service server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("service server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("service server error", "error", err)
		}
	}()

	return ready, nil
}
