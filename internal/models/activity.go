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

package models

import "encoding/json"

// Activity type tags returned by the user activity endpoint. Anything
// outside this set falls through to the generic event handler.
const (
	ActivityPageview   = "PAGEVIEW"
	ActivityScreenview = "SCREENVIEW"
	ActivityGoal       = "GOAL"
	ActivityEcommerce  = "ECOMMERCE"
	ActivityEvent      = "EVENT"
)

// ActivityResponse is the payload of a user activity search.
type ActivityResponse struct {
	Sessions   []ActivitySession `json:"sessions"`
	TotalRows  int               `json:"totalRows,omitempty"`
	SampleRate float64           `json:"sampleRate,omitempty"`
}

// ActivitySession groups the activities of one session.
type ActivitySession struct {
	SessionID      string     `json:"sessionId"`
	SessionDate    string     `json:"sessionDate"` // yyyy-MM-dd
	DeviceCategory string     `json:"deviceCategory,omitempty"`
	Platform       string     `json:"platform,omitempty"`
	DataSource     string     `json:"dataSource,omitempty"`
	Activities     []Activity `json:"activities,omitempty"`
}

// PageviewDetails carries the page-specific fields of a PAGEVIEW activity.
type PageviewDetails struct {
	PagePath  string `json:"pagePath,omitempty"`
	PageTitle string `json:"pageTitle,omitempty"`
}

// Activity is one activity record within a session. The typed fields cover
// what the mapper needs for dispatch and seed properties; Raw preserves the
// full payload for the generic flattening visitor, since the external
// service attaches arbitrary nested attribute maps per activity type.
type Activity struct {
	ActivityType string           `json:"activityType"`
	ActivityTime string           `json:"activityTime"` // RFC 3339
	Hostname     string           `json:"hostname,omitempty"`
	Pageview     *PageviewDetails `json:"pageview,omitempty"`

	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed fields and captures the raw payload for
// the flattening visitor in one pass.
func (a *Activity) UnmarshalJSON(data []byte) error {
	type alias Activity
	var typed alias
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Activity(typed)
	a.Raw = raw
	return nil
}
