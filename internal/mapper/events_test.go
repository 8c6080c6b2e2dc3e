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

package mapper

import (
	"encoding/json"
	"testing"

	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/models"
)

func testMapper() *Mapper {
	return NewMapper(config.TenantSettings{ViewID: "12345"}, nil)
}

func decodeActivity(t *testing.T, raw string) models.Activity {
	t.Helper()
	var a models.Activity
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	return a
}

// TestMapActivitySessions_SessionEvent verifies the synthetic session event
// and that its timestamp comes from the earliest activity.
func TestMapActivitySessions_SessionEvent(t *testing.T) {
	resp := &models.ActivityResponse{
		Sessions: []models.ActivitySession{
			{
				SessionID:      "s1",
				SessionDate:    "2026-03-09",
				DeviceCategory: "desktop",
				Platform:       "Linux",
				Activities: []models.Activity{
					decodeActivity(t, `{"activityType":"EVENT","activityTime":"2026-03-09T10:30:00Z"}`),
					decodeActivity(t, `{"activityType":"EVENT","activityTime":"2026-03-09T09:15:00Z"}`),
				},
			},
		},
	}

	events := testMapper().MapActivitySessions(resp)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	session := events[0]
	if session.Event != EventSession {
		t.Errorf("Event = %q, want %q", session.Event, EventSession)
	}
	if session.Context.EventID != "ga-12345-s1" {
		t.Errorf("EventID = %q", session.Context.EventID)
	}
	if session.CreatedAt != "2026-03-09T09:15:00Z" {
		t.Errorf("CreatedAt = %q, want earliest activity time", session.CreatedAt)
	}
	if session.Properties["num_activities"] != 2 {
		t.Errorf("num_activities = %v", session.Properties["num_activities"])
	}
}

// TestMapActivitySessions_SessionDateFallback verifies the session date
// fallback when the session has no activities.
func TestMapActivitySessions_SessionDateFallback(t *testing.T) {
	resp := &models.ActivityResponse{
		Sessions: []models.ActivitySession{
			{SessionID: "s1", SessionDate: "2026-03-09"},
		},
	}

	events := testMapper().MapActivitySessions(resp)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].CreatedAt != "2026-03-09T00:00:00Z" {
		t.Errorf("CreatedAt = %q", events[0].CreatedAt)
	}
}

// TestMapActivitySessions_Pageview verifies the page event shape: URL from
// hostname + path, flattened payload underneath.
func TestMapActivitySessions_Pageview(t *testing.T) {
	resp := &models.ActivityResponse{
		Sessions: []models.ActivitySession{
			{
				SessionID:   "s1",
				SessionDate: "2026-03-09",
				Activities: []models.Activity{
					decodeActivity(t, `{
						"activityType": "PAGEVIEW",
						"activityTime": "2026-03-09T10:30:00Z",
						"hostname": "shop.example.com",
						"pageview": {"pagePath": "/pricing", "pageTitle": "Pricing"}
					}`),
				},
			},
		},
	}

	events := testMapper().MapActivitySessions(resp)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	page := events[1]
	if page.Event != EventPage {
		t.Errorf("Event = %q, want %q", page.Event, EventPage)
	}
	if page.Properties["url"] != "https://shop.example.com/pricing" {
		t.Errorf("url = %v", page.Properties["url"])
	}
	if page.Properties["title"] != "Pricing" {
		t.Errorf("title = %v", page.Properties["title"])
	}
	if page.Context.EventID != "ga-12345-s1-2026-03-09T10:30:00Z" {
		t.Errorf("EventID = %q", page.Context.EventID)
	}
	// Flattened raw payload
	if page.Properties["pageview__page_path"] != "/pricing" {
		t.Errorf("pageview__page_path = %v", page.Properties["pageview__page_path"])
	}
}

// TestMapActivitySessions_Dispatch verifies the event name per activity
// type, including the generic fallback.
func TestMapActivitySessions_Dispatch(t *testing.T) {
	tests := []struct {
		activityType string
		wantEvent    string
		wantType     string
	}{
		{"SCREENVIEW", EventScreen, "screen"},
		{"GOAL", EventGoal, "goal"},
		{"ECOMMERCE", EventEcommerce, "ecommerce"},
		{"EVENT", EventGeneric, "event"},
		{"SOMETHING_NEW", EventGeneric, "event"},
	}

	for _, tt := range tests {
		resp := &models.ActivityResponse{
			Sessions: []models.ActivitySession{
				{
					SessionID:   "s1",
					SessionDate: "2026-03-09",
					Activities: []models.Activity{
						decodeActivity(t, `{"activityType":"`+tt.activityType+`","activityTime":"2026-03-09T10:30:00Z"}`),
					},
				},
			},
		}
		events := testMapper().MapActivitySessions(resp)
		if len(events) != 2 {
			t.Fatalf("%s: got %d events, want 2", tt.activityType, len(events))
		}
		if events[1].Event != tt.wantEvent {
			t.Errorf("%s: Event = %q, want %q", tt.activityType, events[1].Event, tt.wantEvent)
		}
		if events[1].Context.Type != tt.wantType {
			t.Errorf("%s: Type = %q, want %q", tt.activityType, events[1].Context.Type, tt.wantType)
		}
	}
}

// TestMapActivitySessions_Idempotent verifies that mapping the same
// response twice yields identical event IDs.
func TestMapActivitySessions_Idempotent(t *testing.T) {
	resp := &models.ActivityResponse{
		Sessions: []models.ActivitySession{
			{
				SessionID:   "s1",
				SessionDate: "2026-03-09",
				Activities: []models.Activity{
					decodeActivity(t, `{"activityType":"EVENT","activityTime":"2026-03-09T10:30:00Z"}`),
				},
			},
		},
	}

	m := testMapper()
	first := m.MapActivitySessions(resp)
	second := m.MapActivitySessions(resp)
	for i := range first {
		if first[i].Context.EventID != second[i].Context.EventID {
			t.Errorf("event %d: IDs differ: %q vs %q", i, first[i].Context.EventID, second[i].Context.EventID)
		}
	}
}

// TestMapReportRows verifies identity claims and property typing of report
// row events.
func TestMapReportRows(t *testing.T) {
	m := NewMapper(config.TenantSettings{
		ViewID:                     "12345",
		ReportDimensions:           []string{"ga:dimension1", "ga:country"},
		ReportMetrics:              []string{"ga:sessions"},
		ReportAnonymousIDDimension: "ga:dimension1",
	}, nil)

	dateRange := models.DateRange{StartDate: "2026-03-09", EndDate: "2026-03-10"}
	rows := []models.ReportRow{
		{Dimensions: []string{"abc-123", "DE"}, Metrics: []string{"7"}},
		{Dimensions: []string{"", "FR"}, Metrics: []string{"3"}}, // no anonymous ID
	}

	events := m.MapReportRows(dateRange, rows)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	re := events[0]
	if re.Identity["anonymous_id"] != "ga:abc-123" {
		t.Errorf("anonymous_id = %q", re.Identity["anonymous_id"])
	}
	if re.Event.Event != EventReportRow {
		t.Errorf("Event = %q", re.Event.Event)
	}
	if re.Event.Properties["country"] != "DE" {
		t.Errorf("country = %v", re.Event.Properties["country"])
	}
	if re.Event.Properties["sessions"] != 7.0 {
		t.Errorf("sessions = %v (%T), want 7.0", re.Event.Properties["sessions"], re.Event.Properties["sessions"])
	}
}

// TestMapReportRows_MisconfiguredDimension verifies that rows are dropped
// when the anonymous-ID dimension is not among the dimensions.
func TestMapReportRows_MisconfiguredDimension(t *testing.T) {
	m := NewMapper(config.TenantSettings{
		ViewID:                     "12345",
		ReportDimensions:           []string{"ga:country"},
		ReportAnonymousIDDimension: "ga:dimension1",
	}, nil)

	events := m.MapReportRows(models.DateRange{}, []models.ReportRow{
		{Dimensions: []string{"DE"}},
	})
	if events != nil {
		t.Errorf("expected no events, got %v", events)
	}
}
