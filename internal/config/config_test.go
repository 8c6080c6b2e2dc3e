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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
}

// TestLoad_ReportFilterOperators verifies that unsupported report filter
// operators load fine; the report runner is the one that decides which
// filters to honor.
func TestLoad_ReportFilterOperators(t *testing.T) {
	writeConfig(t, `
tenants:
  - id: tenant-1
    alias: acme
    settings:
      view_id: "12345"
      report_anonymous_id_filters:
        - operator: IS_MISSING
          logical: true
        - operator: IS_PRESENT
          logical: true
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	filters := cfg.Tenants[0].Settings.ReportAnonymousIDFilters
	if len(filters) != 2 {
		t.Fatalf("filters = %d, want 2", len(filters))
	}
	if filters[0].Operator != "IS_MISSING" || filters[1].Operator != "IS_PRESENT" {
		t.Errorf("operators = %q, %q", filters[0].Operator, filters[1].Operator)
	}
}

// TestLoad_MissingViewID verifies that tenant validation still rejects an
// incomplete tenant block.
func TestLoad_MissingViewID(t *testing.T) {
	writeConfig(t, `
tenants:
  - id: tenant-1
    alias: acme
`)

	if _, err := Load(); err == nil {
		t.Fatal("expected a validation error")
	}
}
