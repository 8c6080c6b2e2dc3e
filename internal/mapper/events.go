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
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/models"
)

// Event names emitted to the profile store. "page" is lowercase: the
// profile store treats it as its built-in page-view event.
const (
	EventPage      = "page"
	EventScreen    = "Screen viewed"
	EventGoal      = "Goal tracked"
	EventEcommerce = "E-Commerce Transaction performed"
	EventGeneric   = "Analytics Event tracked"
	EventSession   = "Session started"
	EventReportRow = "Analytics Activity"
)

const sessionDateFormat = "2006-01-02"

// Mapper converts activity search responses and bulk report rows into
// normalized profile-store events.
type Mapper struct {
	viewID   string
	settings config.TenantSettings
	logger   *slog.Logger
}

// NewMapper creates a mapper for one tenant.
func NewMapper(settings config.TenantSettings, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{viewID: settings.ViewID, settings: settings, logger: logger}
}

// MapActivitySessions converts an activity search response into events: one
// synthetic session event per session followed by one event per activity.
// Mapping of each activity is isolated, so a malformed record costs only
// its own event, never the rest of the session.
func (m *Mapper) MapActivitySessions(resp *models.ActivityResponse) []models.NormalizedEvent {
	if resp == nil {
		return nil
	}

	var events []models.NormalizedEvent
	for _, session := range resp.Sessions {
		events = append(events, m.sessionEvent(session))
		for _, activity := range session.Activities {
			evt, ok := m.mapActivity(session, activity)
			if !ok {
				continue
			}
			events = append(events, evt)
		}
	}
	return events
}

// sessionEvent builds the synthetic "Session started" event. Its timestamp
// is the chronologically earliest activity time when the session carries
// activities, otherwise the session date.
func (m *Mapper) sessionEvent(session models.ActivitySession) models.NormalizedEvent {
	created := isoFromSessionDate(session.SessionDate)
	if len(session.Activities) > 0 {
		times := make([]string, 0, len(session.Activities))
		for _, a := range session.Activities {
			if a.ActivityTime != "" {
				times = append(times, a.ActivityTime)
			}
		}
		if len(times) > 0 {
			sort.Strings(times)
			created = isoTime(times[0])
		}
	}

	return models.NormalizedEvent{
		Event: EventSession,
		Properties: map[string]any{
			"session_id":      session.SessionID,
			"device_category": session.DeviceCategory,
			"platform":        session.Platform,
			"data_source":     session.DataSource,
			"num_activities":  len(session.Activities),
		},
		Context: models.EventContext{
			EventID:   fmt.Sprintf("ga-%s-%s", m.viewID, session.SessionID),
			Source:    models.EventSource,
			SessionID: session.SessionID,
			Type:      "session",
			CreatedAt: created,
		},
		CreatedAt: created,
		SessionID: session.SessionID,
	}
}

func (m *Mapper) mapActivity(session models.ActivitySession, activity models.Activity) (evt models.NormalizedEvent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("activity mapping failed",
				"session_id", session.SessionID,
				"activity_type", activity.ActivityType,
				"panic", r)
			ok = false
		}
	}()

	switch activity.ActivityType {
	case models.ActivityPageview:
		evt = m.activityEvent(session, activity, EventPage, "page")
		if activity.Pageview != nil {
			evt.Properties["url"] = "https://" + activity.Hostname + activity.Pageview.PagePath
			evt.Properties["title"] = activity.Pageview.PageTitle
		}
	case models.ActivityScreenview:
		evt = m.activityEvent(session, activity, EventScreen, "screen")
	case models.ActivityGoal:
		evt = m.activityEvent(session, activity, EventGoal, "goal")
	case models.ActivityEcommerce:
		evt = m.activityEvent(session, activity, EventEcommerce, "ecommerce")
	case models.ActivityEvent:
		evt = m.activityEvent(session, activity, EventGeneric, "event")
	default:
		// Unrecognized activity types still flow through as generic events.
		evt = m.activityEvent(session, activity, EventGeneric, "event")
	}

	flattenInto(evt.Properties, activity.Raw)
	return evt, true
}

// activityEvent builds the shared skeleton of a per-activity event. The
// event ID includes the activity time, so identical activities fetched
// twice collapse to one stored event.
func (m *Mapper) activityEvent(session models.ActivitySession, activity models.Activity, name, eventType string) models.NormalizedEvent {
	created := isoTime(activity.ActivityTime)
	return models.NormalizedEvent{
		Event: name,
		Properties: map[string]any{
			"session_id": session.SessionID,
		},
		Context: models.EventContext{
			EventID:   fmt.Sprintf("ga-%s-%s-%s", m.viewID, session.SessionID, activity.ActivityTime),
			Source:    models.EventSource,
			SessionID: session.SessionID,
			Type:      eventType,
			CreatedAt: created,
		},
		CreatedAt: created,
		SessionID: session.SessionID,
	}
}

// MapReportRows converts bulk report rows into events paired with the
// identity claims they attribute to. Rows whose anonymous-ID dimension is
// absent or empty are dropped.
func (m *Mapper) MapReportRows(dateRange models.DateRange, rows []models.ReportRow) []models.ReportEvent {
	anoIdx := -1
	for i, d := range m.settings.ReportDimensions {
		if d == m.settings.ReportAnonymousIDDimension {
			anoIdx = i
			break
		}
	}
	if anoIdx < 0 {
		return nil
	}

	created := isoFromSessionDate(dateRange.EndDate)

	var events []models.ReportEvent
	for _, row := range rows {
		if anoIdx >= len(row.Dimensions) || row.Dimensions[anoIdx] == "" {
			continue
		}

		props := map[string]any{
			"start_date": dateRange.StartDate,
			"end_date":   dateRange.EndDate,
		}
		for i, dim := range m.settings.ReportDimensions {
			if i >= len(row.Dimensions) {
				break
			}
			props[propertyKey(dim)] = row.Dimensions[i]
		}
		for i, metric := range m.settings.ReportMetrics {
			if i >= len(row.Metrics) {
				break
			}
			props[propertyKey(metric)] = metricValue(row.Metrics[i])
		}

		events = append(events, models.ReportEvent{
			Identity: map[string]string{
				"anonymous_id": "ga:" + row.Dimensions[anoIdx],
			},
			Event: models.NormalizedEvent{
				Event:      EventReportRow,
				Properties: props,
				Context: models.EventContext{
					EventID: fmt.Sprintf("ga-%s-%s-%s",
						m.viewID, dateRange.EndDate, strings.Join(row.Dimensions, "-")),
					Source:    models.EventSource,
					Type:      "report",
					CreatedAt: created,
				},
				CreatedAt: created,
			},
		})
	}
	return events
}

// propertyKey turns an API field name like "ga:sessionCount" into a
// property key like "session_count".
func propertyKey(field string) string {
	return snakeCase(strings.TrimPrefix(field, "ga:"))
}

// metricValue parses a metric string as a number where possible; metric
// values arrive as strings on the wire.
func metricValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

// isoTime normalizes an activity timestamp to RFC 3339 UTC, passing the
// raw value through when it does not parse.
func isoTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format(time.RFC3339)
}

// isoFromSessionDate converts a yyyy-MM-dd date to an RFC 3339 midnight
// timestamp.
func isoFromSessionDate(date string) string {
	t, err := time.Parse(sessionDateFormat, date)
	if err != nil {
		return date
	}
	return t.UTC().Format(time.RFC3339)
}
