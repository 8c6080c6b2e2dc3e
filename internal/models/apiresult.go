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

// ApiMethod is the HTTP method an external call was made with.
type ApiMethod string

const (
	ApiMethodGet  ApiMethod = "GET"
	ApiMethodPost ApiMethod = "POST"
)

// ApiResult is the uniform envelope for every external call outcome.
// Callers branch on Success rather than on error propagation; the
// enrichment client never returns a Go error across its boundary.
type ApiResult[R any, D any] struct {
	Endpoint     string    `json:"endpoint"`
	Method       ApiMethod `json:"method"`
	Record       R         `json:"record"`
	Data         *D        `json:"data,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	ErrorDetails string    `json:"error_details,omitempty"`
}

// ApiSuccess builds a successful result for an external call.
func ApiSuccess[R any, D any](endpoint string, method ApiMethod, record R, data *D) ApiResult[R, D] {
	return ApiResult[R, D]{
		Endpoint: endpoint,
		Method:   method,
		Record:   record,
		Data:     data,
		Success:  true,
	}
}

// ApiFailure builds a failure result from an external call error.
func ApiFailure[R any, D any](endpoint string, method ApiMethod, record R, errMsg, details string) ApiResult[R, D] {
	return ApiResult[R, D]{
		Endpoint:     endpoint,
		Method:       method,
		Record:       record,
		Success:      false,
		Error:        errMsg,
		ErrorDetails: details,
	}
}
