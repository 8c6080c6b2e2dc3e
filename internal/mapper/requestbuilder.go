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

// Package mapper derives external lookup requests from profiles and
// converts external activity payloads into normalized profile-store events.
package mapper

import (
	"regexp"
	"strings"
	"time"

	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/models"
)

// ActivityLookback is the time window an activity request reaches back.
const ActivityLookback = 48 * time.Hour

// clientIDPattern matches raw analytics cookie identifiers like
// GA1.2.111222333.444555666.
var clientIDPattern = regexp.MustCompile(`^GA\d\.\d\.\d*\.\d*`)

// Builder derives activity requests from profiles using the tenant's
// lookup settings.
type Builder struct {
	settings config.TenantSettings
	now      func() time.Time
}

// NewBuilder creates a request builder for the given tenant settings.
func NewBuilder(settings config.TenantSettings) *Builder {
	return &Builder{settings: settings, now: time.Now}
}

// BuildActivityRequest derives the identifier sets and lookup window for
// one profile. It returns nil when the profile yields no identifiers at
// all — callers must treat that as "not enrichable", not as an error. The
// function is total: missing or malformed attributes are treated as no
// data.
func (b *Builder) BuildActivityRequest(profile models.Profile) *models.ActivityRequest {
	now := b.now().UTC()
	result := &models.ActivityRequest{
		StartDate: now.Add(-ActivityLookback),
		EndDate:   now,
	}

	if b.settings.LookupAnonymousIDs {
		for _, aid := range profile.AnonymousIDs {
			if prefix := b.settings.LookupAnonymousIDsPrefix; prefix != "" {
				if !strings.HasPrefix(aid, prefix) {
					continue
				}
				aid = strings.TrimPrefix(aid, prefix)
			}
			if !clientIDPattern.MatchString(aid) {
				continue
			}
			if clientID, ok := extractClientID(aid); ok {
				result.ClientIdentifiers = appendUnique(result.ClientIdentifiers, clientID)
			}
		}
	}

	if path := b.settings.LookupAttribute; path != "" {
		if raw, ok := lookupPath(profile.Attributes, path); ok {
			for _, v := range stringValues(raw) {
				if clientIDPattern.MatchString(v) {
					result.ClientIdentifiers = appendUnique(result.ClientIdentifiers, v)
				}
			}
		}
	}

	if path := b.settings.LookupAttributeUserID; path != "" {
		if raw, ok := lookupPath(profile.Attributes, path); ok {
			result.UserIdentifiers = append(result.UserIdentifiers, stringValues(raw)...)
		}
	}

	if len(result.ClientIdentifiers) == 0 && len(result.UserIdentifiers) == 0 {
		return nil
	}

	return result
}

// extractClientID pulls the client identifier out of a raw analytics
// cookie value: the 3rd and 4th dot-separated segments. Values that do not
// split into exactly four parts are rejected.
func extractClientID(raw string) (string, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return "", false
	}
	return parts[2] + "." + parts[3], true
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
