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

package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/profilebeam/gasync/internal/models"
)

// ColumnAttributes describes one entry of the columns catalog. Templated
// columns carry XX placeholders expanded via the template index range.
type ColumnAttributes struct {
	Type             string `json:"type"`   // DIMENSION or METRIC
	Status           string `json:"status"` // PUBLIC or DEPRECATED
	UIName           string `json:"uiName"`
	MinTemplateIndex string `json:"minTemplateIndex,omitempty"`
	MaxTemplateIndex string `json:"maxTemplateIndex,omitempty"`
}

// Column is one dimension or metric definition.
type Column struct {
	ID         string           `json:"id"`
	Attributes ColumnAttributes `json:"attributes"`
}

// ColumnCatalog is the full columns listing.
type ColumnCatalog struct {
	Items []Column `json:"items"`
}

// CustomDimension is a tenant-defined dimension on a web property.
type CustomDimension struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Index  int    `json:"index,omitempty"`
	Active bool   `json:"active"`
}

// CustomDimensionCatalog is the custom dimensions listing.
type CustomDimensionCatalog struct {
	Items []CustomDimension `json:"items"`
}

// ListColumns fetches the dimension/metric column catalog. Slowly-changing
// reference data; intended to sit behind the cache's GetOrFetch.
func (c *Client) ListColumns(ctx context.Context) models.ApiResult[string, ColumnCatalog] {
	endpoint := c.metadataBaseURL + "/metadata/ga/columns"

	body, err := c.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ApiFailure[string, ColumnCatalog](
			endpoint, models.ApiMethodGet, "columns", "list columns failed", err.Error())
	}

	var data ColumnCatalog
	if err := json.Unmarshal(body, &data); err != nil {
		return models.ApiFailure[string, ColumnCatalog](
			endpoint, models.ApiMethodGet, "columns", "decode columns response", err.Error())
	}

	return models.ApiSuccess(endpoint, models.ApiMethodGet, "columns", &data)
}

// ListCustomDimensions fetches the active custom dimensions of a web
// property.
func (c *Client) ListCustomDimensions(ctx context.Context, accountID, webPropertyID string) models.ApiResult[string, CustomDimensionCatalog] {
	endpoint := fmt.Sprintf("%s/management/accounts/%s/webproperties/%s/customDimensions",
		c.metadataBaseURL, accountID, webPropertyID)

	record := accountID + "/" + webPropertyID

	body, err := c.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ApiFailure[string, CustomDimensionCatalog](
			endpoint, models.ApiMethodGet, record, "list custom dimensions failed", err.Error())
	}

	var data CustomDimensionCatalog
	if err := json.Unmarshal(body, &data); err != nil {
		return models.ApiFailure[string, CustomDimensionCatalog](
			endpoint, models.ApiMethodGet, record, "decode custom dimensions response", err.Error())
	}

	return models.ApiSuccess(endpoint, models.ApiMethodGet, record, &data)
}
