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

// Package filter classifies inbound profile-update notifications as
// enrichable or skippable based on the tenant's segment whitelist.
package filter

import "github.com/profilebeam/gasync/internal/models"

// SegmentAll is the whitelist sentinel that matches every profile.
const SegmentAll = "ALL"

// Classified splits a notification batch by outgoing operation.
type Classified struct {
	Enrich []models.Envelope
	Skip   []models.Envelope
}

// Filter classifies notifications against a segment whitelist.
type Filter struct {
	whitelist []string
}

// New creates a segment filter for the given whitelist.
func New(whitelist []string) *Filter {
	return &Filter{whitelist: whitelist}
}

// Classify wraps each notification in an envelope and decides its
// operation. Batch/backfill operations bypass segment filters entirely;
// incremental notifications must match at least one whitelisted segment
// unless the whitelist carries the ALL sentinel. Pure function: skip
// telemetry is the orchestrator's responsibility.
func (f *Filter) Classify(messages []models.UserUpdateMessage, isBatch bool) Classified {
	var result Classified

	for _, msg := range messages {
		envelope := models.Envelope{
			Message:    msg,
			ObjectType: "user",
			State:      models.StateReceived,
		}

		switch {
		case isBatch:
			envelope.Operation = models.OperationEnrich
			envelope.Notes = []string{models.NoteBatchBypass}
		case f.inAnySegment(msg.Segments):
			envelope.Operation = models.OperationEnrich
		default:
			envelope.Operation = models.OperationSkip
			envelope.Notes = []string{models.NoteNotInAnySegment}
		}

		envelope.State = models.StateClassified
		if envelope.Operation == models.OperationEnrich {
			result.Enrich = append(result.Enrich, envelope)
		} else {
			result.Skip = append(result.Skip, envelope)
		}
	}

	return result
}

// inAnySegment reports whether any of the profile's segments is
// whitelisted, or the whitelist carries the ALL sentinel.
func (f *Filter) inAnySegment(segments []models.Segment) bool {
	whitelisted := make(map[string]bool, len(f.whitelist))
	for _, id := range f.whitelist {
		if id == SegmentAll {
			return true
		}
		whitelisted[id] = true
	}

	for _, s := range segments {
		if whitelisted[s.ID] {
			return true
		}
	}

	return false
}
