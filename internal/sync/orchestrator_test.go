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
	"encoding/json"
	"testing"
	"time"

	"github.com/profilebeam/gasync/internal/analytics"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/models"
)

// fakeStore is an in-memory cache.Store.
type fakeStore struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = data
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string, dest any) (bool, error) {
	data, ok := f.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return n, nil
}

// fakeActivityClient records fetches and fails selected identifiers.
type fakeActivityClient struct {
	fetched []string
	fail    map[string]bool
	resp    models.ActivityResponse
}

func (f *fakeActivityClient) FetchActivity(_ context.Context, identifier string, _, _ time.Time, _ models.IdentifierType) models.ApiResult[analytics.ActivitySearchRequest, models.ActivityResponse] {
	f.fetched = append(f.fetched, identifier)
	record := analytics.ActivitySearchRequest{}
	if f.fail[identifier] {
		return models.ApiFailure[analytics.ActivitySearchRequest, models.ActivityResponse](
			"/userActivity:search", models.ApiMethodPost, record, "boom", "HTTP 500")
	}
	resp := f.resp
	return models.ApiSuccess("/userActivity:search", models.ApiMethodPost, record, &resp)
}

// fakeEmitter collects emitted events.
type fakeEmitter struct {
	events     []models.NormalizedEvent
	identities []map[string]string
}

func (f *fakeEmitter) EmitEvent(_ context.Context, _ string, identity map[string]string, event models.NormalizedEvent) error {
	f.events = append(f.events, event)
	f.identities = append(f.identities, identity)
	return nil
}

// fakeCreds serves a fixed key and records report runs.
type fakeCreds struct {
	key        string
	reportRows []int
}

func (f *fakeCreds) GetKey(_ context.Context, _ string) (string, error) {
	return f.key, nil
}

func (f *fakeCreds) RecordReportRun(_ context.Context, _, _ string, rows int) error {
	f.reportRows = append(f.reportRows, rows)
	return nil
}

func testTenant() config.TenantConfig {
	return config.TenantConfig{
		ID:    "tenant-1",
		Alias: "acme",
		Settings: config.TenantSettings{
			ViewID:               "12345",
			SynchronizedSegments: []string{"ALL"},
			LookupAnonymousIDs:   true,
		},
	}
}

func notification(id string, anonymousIDs ...string) models.UserUpdateMessage {
	return models.UserUpdateMessage{
		User: models.Profile{ID: id, AnonymousIDs: anonymousIDs},
	}
}

func activityResponse() models.ActivityResponse {
	return models.ActivityResponse{
		Sessions: []models.ActivitySession{
			{SessionID: "s1", SessionDate: "2026-03-09"},
		},
	}
}

func newTestOrchestrator(store *fakeStore, client *fakeActivityClient, emitter *fakeEmitter, creds *fakeCreds) *Orchestrator {
	return NewOrchestrator(OrchestratorConfig{
		Tenant:      testTenant(),
		Cache:       store,
		Client:      client,
		Emitter:     emitter,
		Credentials: creds,
	})
}

// TestSyncProfiles_MissingCredentials verifies the batch-fatal
// precondition: no stored key means no profile is touched.
func TestSyncProfiles_MissingCredentials(t *testing.T) {
	client := &fakeActivityClient{}
	o := newTestOrchestrator(newFakeStore(), client, &fakeEmitter{}, &fakeCreds{key: ""})

	ok := o.SyncProfiles(context.Background(), []models.UserUpdateMessage{
		notification("u1", "GA1.2.1.2"),
	}, false)

	if ok {
		t.Error("expected false on missing credentials")
	}
	if len(client.fetched) != 0 {
		t.Errorf("fetched = %v, want none", client.fetched)
	}
}

// TestSyncProfiles_EnrichAndRefresh verifies the happy path: activity is
// fetched, events are emitted against the profile ID, and the suppression
// key is refreshed.
func TestSyncProfiles_EnrichAndRefresh(t *testing.T) {
	store := newFakeStore()
	client := &fakeActivityClient{resp: activityResponse()}
	emitter := &fakeEmitter{}
	o := newTestOrchestrator(store, client, emitter, &fakeCreds{key: "{}"})

	ok := o.SyncProfiles(context.Background(), []models.UserUpdateMessage{
		notification("u1", "GA1.2.1.2"),
	}, false)

	if !ok {
		t.Fatal("expected true")
	}
	if len(client.fetched) != 1 || client.fetched[0] != "1.2" {
		t.Errorf("fetched = %v", client.fetched)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("emitted = %d events, want 1", len(emitter.events))
	}
	if emitter.identities[0]["id"] != "u1" {
		t.Errorf("identity = %v", emitter.identities[0])
	}

	rateKey := "tenant-1__u1__uas"
	if _, ok := store.values[rateKey]; !ok {
		t.Error("suppression key not refreshed")
	}
	if store.ttls[rateKey] != RateLimitTTL {
		t.Errorf("suppression TTL = %v, want %v", store.ttls[rateKey], RateLimitTTL)
	}
}

// TestSyncProfiles_RateLimited verifies that a recent search suppresses an
// incremental sync but not a batch sync.
func TestSyncProfiles_RateLimited(t *testing.T) {
	store := newFakeStore()
	store.Set(context.Background(), "tenant-1__u1__uas", "2026-03-10T11:45:00Z", RateLimitTTL)

	client := &fakeActivityClient{resp: activityResponse()}
	o := newTestOrchestrator(store, client, &fakeEmitter{}, &fakeCreds{key: "{}"})

	o.SyncProfiles(context.Background(), []models.UserUpdateMessage{
		notification("u1", "GA1.2.1.2"),
	}, false)
	if len(client.fetched) != 0 {
		t.Errorf("incremental: fetched = %v, want none", client.fetched)
	}

	o.SyncProfiles(context.Background(), []models.UserUpdateMessage{
		notification("u1", "GA1.2.1.2"),
	}, true)
	if len(client.fetched) != 1 {
		t.Errorf("batch: fetched = %v, want one", client.fetched)
	}
}

// TestSyncProfiles_NoIdentifiers verifies the skip path for profiles that
// yield no identifiers: no fetch and no suppression key.
func TestSyncProfiles_NoIdentifiers(t *testing.T) {
	store := newFakeStore()
	client := &fakeActivityClient{}
	o := newTestOrchestrator(store, client, &fakeEmitter{}, &fakeCreds{key: "{}"})

	ok := o.SyncProfiles(context.Background(), []models.UserUpdateMessage{
		notification("u1"),
	}, false)

	if !ok {
		t.Fatal("expected true")
	}
	if len(client.fetched) != 0 {
		t.Errorf("fetched = %v, want none", client.fetched)
	}
	if _, ok := store.values["tenant-1__u1__uas"]; ok {
		t.Error("suppression key set without an attempt")
	}
}

// TestSyncProfiles_IdentifierFailureContinues verifies the log-and-continue
// fan-out: one failing identifier does not stop the others, and the
// suppression key is still refreshed.
func TestSyncProfiles_IdentifierFailureContinues(t *testing.T) {
	store := newFakeStore()
	client := &fakeActivityClient{
		resp: activityResponse(),
		fail: map[string]bool{"1.2": true},
	}
	emitter := &fakeEmitter{}
	o := newTestOrchestrator(store, client, emitter, &fakeCreds{key: "{}"})

	ok := o.SyncProfiles(context.Background(), []models.UserUpdateMessage{
		notification("u1", "GA1.2.1.2", "GA1.2.3.4"),
	}, false)

	if !ok {
		t.Fatal("expected true")
	}
	if len(client.fetched) != 2 {
		t.Errorf("fetched = %v, want both identifiers", client.fetched)
	}
	if len(emitter.events) != 1 {
		t.Errorf("emitted = %d events, want 1 from the healthy identifier", len(emitter.events))
	}
	if _, ok := store.values["tenant-1__u1__uas"]; !ok {
		t.Error("suppression key not refreshed after partial failure")
	}
}
