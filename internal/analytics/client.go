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

// Package analytics implements a client for the analytics reporting API:
// per-identifier user activity search, paginated bulk reports, and the
// column/dimension metadata catalogs.
//
// Every method returns an ApiResult instead of a Go error. Transport and
// auth failures are folded into the result, so callers branch on Success
// and a single bad identifier never aborts a batch.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/profilebeam/gasync/internal/models"
)

const (
	// DefaultReportingBaseURL is the root of the reporting API.
	DefaultReportingBaseURL = "https://analyticsreporting.googleapis.com/v4"
	// DefaultMetadataBaseURL is the root of the management/metadata API.
	DefaultMetadataBaseURL = "https://www.googleapis.com/analytics/v3"

	// dateFormat is the wire format for report date ranges.
	dateFormat = "2006-01-02"
)

// UserRef selects the identity an activity search resolves.
type UserRef struct {
	Type   models.IdentifierType `json:"type"`
	UserID string                `json:"userId"`
}

// ActivitySearchRequest is the request body of a user activity search.
type ActivitySearchRequest struct {
	ViewID    string           `json:"viewId"`
	User      UserRef          `json:"user"`
	DateRange models.DateRange `json:"dateRange"`
}

// Client talks to the analytics reporting and metadata APIs.
type Client struct {
	httpClient       *http.Client
	reportingBaseURL string
	metadataBaseURL  string
	viewID           string
	limiter          *rate.Limiter
	breaker          *gobreaker.CircuitBreaker[[]byte]
}

// ClientConfig holds the dependencies for the analytics client. HTTPClient
// must already handle authentication (e.g. via an oauth2 token source).
type ClientConfig struct {
	HTTPClient       *http.Client
	ViewID           string
	ReportingBaseURL string
	MetadataBaseURL  string

	// RequestsPerSecond paces outbound calls to respect the third-party
	// API quota. Zero means 10 rps.
	RequestsPerSecond float64
}

// NewClient creates an analytics client.
func NewClient(cfg ClientConfig) *Client {
	reportingBase := cfg.ReportingBaseURL
	if reportingBase == "" {
		reportingBase = DefaultReportingBaseURL
	}
	metadataBase := cfg.MetadataBaseURL
	if metadataBase == "" {
		metadataBase = DefaultMetadataBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = 10
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "analytics-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient:       cfg.HTTPClient,
		reportingBaseURL: reportingBase,
		metadataBaseURL:  metadataBase,
		viewID:           cfg.ViewID,
		limiter:          rate.NewLimiter(rate.Limit(rps), 1),
		breaker:          breaker,
	}
}

// FetchActivity searches the activity sessions recorded for one identifier
// within the given window. It never returns a Go error; the outcome is
// encoded in the result.
func (c *Client) FetchActivity(
	ctx context.Context,
	identifier string,
	start, end time.Time,
	idType models.IdentifierType,
) models.ApiResult[ActivitySearchRequest, models.ActivityResponse] {
	endpoint := c.reportingBaseURL + "/userActivity:search"
	record := ActivitySearchRequest{
		ViewID: c.viewID,
		User:   UserRef{Type: idType, UserID: identifier},
		DateRange: models.DateRange{
			StartDate: start.UTC().Format(dateFormat),
			EndDate:   end.UTC().Format(dateFormat),
		},
	}

	body, err := c.doJSON(ctx, http.MethodPost, endpoint, record)
	if err != nil {
		return models.ApiFailure[ActivitySearchRequest, models.ActivityResponse](
			endpoint, models.ApiMethodPost, record, "user activity search failed", err.Error())
	}

	var data models.ActivityResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.ApiFailure[ActivitySearchRequest, models.ActivityResponse](
			endpoint, models.ApiMethodPost, record, "decode user activity response", err.Error())
	}

	return models.ApiSuccess(endpoint, models.ApiMethodPost, record, &data)
}

// reportWireRequest is the batch body of the bulk report endpoint.
type reportWireRequest struct {
	ReportRequests []reportWireQuery `json:"reportRequests"`
}

type reportWireQuery struct {
	ViewID                 string                  `json:"viewId"`
	Dimensions             []wireDimension         `json:"dimensions"`
	DimensionFilterClauses []wireDimFilterClause   `json:"dimensionFilterClauses,omitempty"`
	Metrics                []wireMetric            `json:"metrics"`
	DateRanges             []models.DateRange      `json:"dateRanges"`
	PageToken              string                  `json:"pageToken,omitempty"`
}

type wireDimension struct {
	Name string `json:"name"`
}

type wireMetric struct {
	Expression string `json:"expression"`
}

type wireDimFilterClause struct {
	Filters []wireDimFilter `json:"filters"`
}

type wireDimFilter struct {
	DimensionName string   `json:"dimensionName"`
	Operator      string   `json:"operator"`
	Expressions   []string `json:"expressions,omitempty"`
	Not           bool     `json:"not,omitempty"`
}

// reportWireResponse mirrors the bulk report response envelope.
type reportWireResponse struct {
	Reports []struct {
		Data struct {
			Rows []struct {
				Dimensions []string `json:"dimensions"`
				Metrics    []struct {
					Values []string `json:"values"`
				} `json:"metrics"`
			} `json:"rows"`
			RowCount int `json:"rowCount"`
		} `json:"data"`
		NextPageToken string `json:"nextPageToken"`
	} `json:"reports"`
}

// RunReport issues one page of a bulk report query. An empty PageToken on
// the request means the first page; an empty NextPageToken on the response
// means the last.
func (c *Client) RunReport(ctx context.Context, req models.ReportRequest) models.ApiResult[models.ReportRequest, models.ReportResponse] {
	endpoint := c.reportingBaseURL + "/reports:batchGet"

	query := reportWireQuery{
		ViewID:     req.ViewID,
		DateRanges: []models.DateRange{req.DateRange},
		PageToken:  req.PageToken,
	}
	for _, d := range req.Dimensions {
		query.Dimensions = append(query.Dimensions, wireDimension{Name: d})
	}
	for _, m := range req.Metrics {
		query.Metrics = append(query.Metrics, wireMetric{Expression: m})
	}
	if len(req.DimensionFilters) > 0 {
		clause := wireDimFilterClause{}
		for _, f := range req.DimensionFilters {
			clause.Filters = append(clause.Filters, wireDimFilter{
				DimensionName: f.DimensionName,
				Operator:      f.Operator,
				Expressions:   f.Expressions,
				Not:           f.Not,
			})
		}
		query.DimensionFilterClauses = []wireDimFilterClause{clause}
	}

	body, err := c.doJSON(ctx, http.MethodPost, endpoint, reportWireRequest{
		ReportRequests: []reportWireQuery{query},
	})
	if err != nil {
		return models.ApiFailure[models.ReportRequest, models.ReportResponse](
			endpoint, models.ApiMethodPost, req, "bulk report failed", err.Error())
	}

	var wire reportWireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return models.ApiFailure[models.ReportRequest, models.ReportResponse](
			endpoint, models.ApiMethodPost, req, "decode bulk report response", err.Error())
	}

	data := models.ReportResponse{}
	if len(wire.Reports) > 0 {
		report := wire.Reports[0]
		data.RowCount = report.Data.RowCount
		data.NextPageToken = report.NextPageToken
		for _, row := range report.Data.Rows {
			mapped := models.ReportRow{Dimensions: row.Dimensions}
			if len(row.Metrics) > 0 {
				mapped.Metrics = row.Metrics[0].Values
			}
			data.Rows = append(data.Rows, mapped)
		}
	}

	return models.ApiSuccess(endpoint, models.ApiMethodPost, req, &data)
}

// doJSON performs a paced, breaker-guarded request and returns the body of
// a 2xx response.
func (c *Client) doJSON(ctx context.Context, method, url string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshal request body: %w", err)
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	})
}
