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

package filter

import (
	"testing"

	"github.com/profilebeam/gasync/internal/models"
)

func message(id string, segmentIDs ...string) models.UserUpdateMessage {
	var segments []models.Segment
	for _, s := range segmentIDs {
		segments = append(segments, models.Segment{ID: s})
	}
	return models.UserUpdateMessage{
		User:     models.Profile{ID: id},
		Segments: segments,
	}
}

// TestClassify_Whitelist verifies that only profiles matching a
// whitelisted segment are enriched.
func TestClassify_Whitelist(t *testing.T) {
	f := New([]string{"seg-a"})

	result := f.Classify([]models.UserUpdateMessage{
		message("in", "seg-a", "seg-x"),
		message("out", "seg-x"),
	}, false)

	if len(result.Enrich) != 1 || result.Enrich[0].Message.User.ID != "in" {
		t.Errorf("Enrich = %+v", result.Enrich)
	}
	if len(result.Skip) != 1 || result.Skip[0].Message.User.ID != "out" {
		t.Errorf("Skip = %+v", result.Skip)
	}
	if got := result.Skip[0].Notes[0]; got != models.NoteNotInAnySegment {
		t.Errorf("skip note = %q", got)
	}
	if result.Skip[0].Operation != models.OperationSkip {
		t.Errorf("skip operation = %q", result.Skip[0].Operation)
	}
	if result.Enrich[0].State != models.StateClassified || result.Skip[0].State != models.StateClassified {
		t.Errorf("states = %q/%q, want %q both",
			result.Enrich[0].State, result.Skip[0].State, models.StateClassified)
	}
}

// TestClassify_AllSentinel verifies the ALL sentinel matches everyone.
func TestClassify_AllSentinel(t *testing.T) {
	f := New([]string{SegmentAll})

	result := f.Classify([]models.UserUpdateMessage{
		message("u1"),
		message("u2", "anything"),
	}, false)

	if len(result.Enrich) != 2 || len(result.Skip) != 0 {
		t.Errorf("enrich=%d skip=%d, want 2/0", len(result.Enrich), len(result.Skip))
	}
}

// TestClassify_BatchBypass verifies batch operations skip segment
// filtering entirely and carry the bypass note.
func TestClassify_BatchBypass(t *testing.T) {
	f := New([]string{"seg-a"})

	result := f.Classify([]models.UserUpdateMessage{
		message("u1", "seg-x"),
	}, true)

	if len(result.Enrich) != 1 || len(result.Skip) != 0 {
		t.Fatalf("enrich=%d skip=%d, want 1/0", len(result.Enrich), len(result.Skip))
	}
	if got := result.Enrich[0].Notes[0]; got != models.NoteBatchBypass {
		t.Errorf("note = %q", got)
	}
}

// TestClassify_EmptyWhitelist verifies that nothing is enriched
// incrementally with no whitelist.
func TestClassify_EmptyWhitelist(t *testing.T) {
	f := New(nil)

	result := f.Classify([]models.UserUpdateMessage{
		message("u1", "seg-a"),
	}, false)

	if len(result.Enrich) != 0 || len(result.Skip) != 1 {
		t.Errorf("enrich=%d skip=%d, want 0/1", len(result.Enrich), len(result.Skip))
	}
}
