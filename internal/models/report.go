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

// DateRange bounds a bulk report query. Dates are yyyy-MM-dd.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// DimensionFilter restricts a bulk report to rows matching a condition on
// one dimension.
type DimensionFilter struct {
	DimensionName string   `json:"dimensionName"`
	Operator      string   `json:"operator"`
	Expressions   []string `json:"expressions,omitempty"`
	Not           bool     `json:"not,omitempty"`
}

// ReportRequest describes one bulk report query. PageToken carries the
// opaque continuation cursor; empty means the first page.
type ReportRequest struct {
	ViewID           string            `json:"viewId"`
	Dimensions       []string          `json:"dimensions"`
	DimensionFilters []DimensionFilter `json:"dimensionFilters,omitempty"`
	Metrics          []string          `json:"metrics"`
	DateRange        DateRange         `json:"dateRange"`
	PageToken        string            `json:"pageToken,omitempty"`
}

// ReportRow is one row of a bulk report: dimension values in request order
// plus metric values in request order.
type ReportRow struct {
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
}

// ReportResponse is one page of a bulk report. An absent NextPageToken
// signals pagination completion.
type ReportResponse struct {
	Rows          []ReportRow `json:"rows"`
	RowCount      int         `json:"rowCount,omitempty"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}
