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
	"reflect"
	"testing"
	"time"

	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

// TestBuildActivityRequest_AnonymousIDs verifies cookie extraction: the
// client ID is the 3rd and 4th dot-separated segment of the raw value.
func TestBuildActivityRequest_AnonymousIDs(t *testing.T) {
	b := NewBuilder(config.TenantSettings{LookupAnonymousIDs: true})
	b.now = fixedNow

	req := b.BuildActivityRequest(models.Profile{
		ID: "u1",
		AnonymousIDs: []string{
			"GA1.2.111222333.444555666",
			"GA1.2.111222333.444555666", // duplicate
			"not-a-cookie",
		},
	})

	if req == nil {
		t.Fatal("expected a request, got nil")
	}
	want := []string{"111222333.444555666"}
	if !reflect.DeepEqual(req.ClientIdentifiers, want) {
		t.Errorf("ClientIdentifiers = %v, want %v", req.ClientIdentifiers, want)
	}
}

// TestBuildActivityRequest_Prefix verifies that only prefixed anonymous IDs
// are considered and the prefix is stripped before extraction.
func TestBuildActivityRequest_Prefix(t *testing.T) {
	b := NewBuilder(config.TenantSettings{
		LookupAnonymousIDs:       true,
		LookupAnonymousIDsPrefix: "ga:",
	})
	b.now = fixedNow

	req := b.BuildActivityRequest(models.Profile{
		ID: "u1",
		AnonymousIDs: []string{
			"ga:GA1.2.1.2",
			"GA1.2.3.4", // not prefixed, ignored
		},
	})

	if req == nil {
		t.Fatal("expected a request, got nil")
	}
	want := []string{"1.2"}
	if !reflect.DeepEqual(req.ClientIdentifiers, want) {
		t.Errorf("ClientIdentifiers = %v, want %v", req.ClientIdentifiers, want)
	}
}

// TestBuildActivityRequest_AttributePaths verifies the dot-path lookups for
// client IDs and user IDs.
func TestBuildActivityRequest_AttributePaths(t *testing.T) {
	b := NewBuilder(config.TenantSettings{
		LookupAttribute:       "traits.ga_client_id",
		LookupAttributeUserID: "traits.crm.user_ids",
	})
	b.now = fixedNow

	req := b.BuildActivityRequest(models.Profile{
		ID: "u1",
		Attributes: map[string]any{
			"traits": map[string]any{
				"ga_client_id": "GA1.2.99.88",
				"crm": map[string]any{
					"user_ids": []any{"alice", "bob"},
				},
			},
		},
	})

	if req == nil {
		t.Fatal("expected a request, got nil")
	}
	if !reflect.DeepEqual(req.ClientIdentifiers, []string{"GA1.2.99.88"}) {
		t.Errorf("ClientIdentifiers = %v", req.ClientIdentifiers)
	}
	if !reflect.DeepEqual(req.UserIdentifiers, []string{"alice", "bob"}) {
		t.Errorf("UserIdentifiers = %v", req.UserIdentifiers)
	}
}

// TestBuildActivityRequest_NoIdentifiers verifies the nil contract when the
// profile yields nothing.
func TestBuildActivityRequest_NoIdentifiers(t *testing.T) {
	b := NewBuilder(config.TenantSettings{LookupAnonymousIDs: true})
	b.now = fixedNow

	req := b.BuildActivityRequest(models.Profile{ID: "u1"})
	if req != nil {
		t.Errorf("expected nil request, got %+v", req)
	}
}

// TestBuildActivityRequest_Window verifies the lookback window.
func TestBuildActivityRequest_Window(t *testing.T) {
	b := NewBuilder(config.TenantSettings{LookupAnonymousIDs: true})
	b.now = fixedNow

	req := b.BuildActivityRequest(models.Profile{
		ID:           "u1",
		AnonymousIDs: []string{"GA1.2.1.2"},
	})

	if req == nil {
		t.Fatal("expected a request, got nil")
	}
	if got := req.EndDate.Sub(req.StartDate); got != ActivityLookback {
		t.Errorf("window = %v, want %v", got, ActivityLookback)
	}
	if !req.EndDate.Equal(fixedNow()) {
		t.Errorf("EndDate = %v, want %v", req.EndDate, fixedNow())
	}
}

func TestExtractClientID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"GA1.2.111222333.444555666", "111222333.444555666", true},
		{"GA1.2.111222333", "", false},
		{"GA1.2.1.2.3", "", false},
	}
	for _, tt := range tests {
		got, ok := extractClientID(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("extractClientID(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
