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

// Operation is the outgoing operation decided for an envelope.
type Operation string

const (
	OperationEnrich Operation = "enrich"
	OperationSkip   Operation = "skip"
)

// EnvelopeState tracks an envelope's progress through the pipeline.
type EnvelopeState string

const (
	StateReceived    EnvelopeState = "received"
	StateClassified  EnvelopeState = "classified"
	StateRateChecked EnvelopeState = "rate_checked"
	StateEnriched    EnvelopeState = "enriched"
	StateEmitted     EnvelopeState = "emitted"
	StateFailed      EnvelopeState = "failed"
)

// Envelope wraps one profile-update notification through the pipeline
// stages. The segment filter creates it; the request builder attaches the
// activity request and may downgrade the operation; the orchestrator
// consumes it once events are emitted.
type Envelope struct {
	Message    UserUpdateMessage
	Request    *ActivityRequest
	Operation  Operation
	ObjectType string
	State      EnvelopeState
	Notes      []string
}
