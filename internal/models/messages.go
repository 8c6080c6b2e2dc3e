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

// Envelope notes attached during classification and request building.
const (
	NoteBatchBypass     = "user synchronized in batch operation, segment filters not applied"
	NoteNotInAnySegment = "user won't be synchronized since it is not matching any of the filtered segments"
	NoteNoClientIDs     = "user doesn't have any client identifiers to search an activity report for"
	NoteRecentSearch    = "user activity was already searched within the last 30 minutes"
)
