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

// EventSource identifies this connector in emitted event contexts.
const EventSource = "analytics"

// EventContext carries the idempotency and provenance metadata of a
// normalized event. EventID is stable across re-ingestion of the same
// source record.
type EventContext struct {
	EventID   string `json:"event_id"`
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// NormalizedEvent is the flat event shape emitted to the profile store.
// Properties values are scalars only; nested payload structure is flattened
// or stringified by the mapper.
type NormalizedEvent struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
	Context    EventContext   `json:"context"`
	CreatedAt  string         `json:"created_at"`
	SessionID  string         `json:"session_id,omitempty"`
}

// ReportEvent pairs a normalized event from a bulk report row with the
// identity claims it should be attributed to.
type ReportEvent struct {
	Identity map[string]string `json:"identity"`
	Event    NormalizedEvent   `json:"event"`
}
