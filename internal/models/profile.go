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

// Package models defines the data structures shared across the sync service.
package models

// Segment represents a profile-store segment a user belongs to.
type Segment struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Profile represents a user profile as delivered by the profile store.
// Attributes holds arbitrary nested profile data addressable by dot-path.
type Profile struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	ExternalID   string         `json:"external_id,omitempty"`
	AnonymousIDs []string       `json:"anonymous_ids,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// UserUpdateMessage is a single profile-update notification from the
// upstream profile store.
type UserUpdateMessage struct {
	User     Profile   `json:"user"`
	Segments []Segment `json:"segments"`
}

// NotificationBatch is the payload delivered to the notification endpoint:
// a list of profile-update messages plus the batch/backfill flag.
type NotificationBatch struct {
	Messages []UserUpdateMessage `json:"messages"`
	IsBatch  bool                `json:"is_batch"`
}
