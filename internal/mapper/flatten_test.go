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

import "testing"

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pageTitle", "page_title"},
		{"customDimension1", "custom_dimension_1"},
		{"hostname", "hostname"},
		{"device-category", "device_category"},
		{"Session Started", "session_started"},
	}
	for _, tt := range tests {
		if got := snakeCase(tt.in); got != tt.want {
			t.Errorf("snakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestFlattenInto_DepthTwo verifies the one-level descent with joined keys.
func TestFlattenInto_DepthTwo(t *testing.T) {
	props := map[string]any{}
	flattenInto(props, map[string]any{
		"activityType": "GOAL",
		"goals": map[string]any{
			"goalName": "signup",
		},
	})

	if props["activity_type"] != "GOAL" {
		t.Errorf("activity_type = %v", props["activity_type"])
	}
	if props["goals__goal_name"] != "signup" {
		t.Errorf("goals__goal_name = %v", props["goals__goal_name"])
	}
}

// TestFlattenInto_DeepStringify verifies that values below the flattening
// depth become JSON strings.
func TestFlattenInto_DeepStringify(t *testing.T) {
	props := map[string]any{}
	flattenInto(props, map[string]any{
		"ecommerce": map[string]any{
			"products": []any{
				map[string]any{"sku": "A-1"},
			},
		},
	})

	got, ok := props["ecommerce__products"].(string)
	if !ok {
		t.Fatalf("ecommerce__products = %T, want string", props["ecommerce__products"])
	}
	if got != `[{"sku":"A-1"}]` {
		t.Errorf("ecommerce__products = %q", got)
	}
}

// TestFlattenInto_Arrays verifies that top-level arrays index into the
// joined key form.
func TestFlattenInto_Arrays(t *testing.T) {
	props := map[string]any{}
	flattenInto(props, map[string]any{
		"goals": []any{"signup", "purchase"},
	})

	if props["goals__0"] != "signup" || props["goals__1"] != "purchase" {
		t.Errorf("props = %v", props)
	}
}
