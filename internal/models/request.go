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

import "time"

// IdentifierType selects how the analytics service resolves an identifier.
type IdentifierType string

const (
	IdentifierClientID IdentifierType = "CLIENT_ID"
	IdentifierUserID   IdentifierType = "USER_ID"
)

// ActivityRequest is the set of externally resolvable identifiers for one
// profile plus the bounded time window to search. At least one identifier
// list must be non-empty for the request to be usable.
type ActivityRequest struct {
	ClientIdentifiers []string
	UserIdentifiers   []string
	StartDate         time.Time
	EndDate           time.Time
}
