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

// Package metadata resolves the dimension and metric option lists offered
// to tenants when configuring reports, backed by the analytics column
// catalogs with a cache in front.
package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/profilebeam/gasync/internal/analytics"
	"github.com/profilebeam/gasync/internal/cache"
	"github.com/profilebeam/gasync/internal/config"
	"github.com/profilebeam/gasync/internal/models"
)

// CatalogTTL is how long resolved catalogs stay cached. The catalogs are
// reference data that changes on the order of months.
const CatalogTTL = time.Hour

// Field kinds a resolver can list.
const (
	KindDimensions       = "dimensions"
	KindMetrics          = "metrics"
	KindCustomDimensions = "customdimensions"
)

const (
	columnTypeDimension = "DIMENSION"
	columnTypeMetric    = "METRIC"
	statusDeprecated    = "DEPRECATED"

	// templatePlaceholder marks templated column IDs like ga:dimensionXX
	// that expand into one entry per template index.
	templatePlaceholder = "XX"

	// genericDimensionPrefix is the templated custom-dimension family; it
	// is excluded from the plain dimension list because the per-property
	// custom dimension catalog supersedes it.
	genericDimensionPrefix = "ga:dimension"
)

// Option is one selectable field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Schema is the payload served to settings UIs.
type Schema struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Options []Option `json:"options"`
}

// CatalogClient is the part of the analytics client the resolver needs.
type CatalogClient interface {
	ListColumns(ctx context.Context) models.ApiResult[string, analytics.ColumnCatalog]
	ListCustomDimensions(ctx context.Context, accountID, webPropertyID string) models.ApiResult[string, analytics.CustomDimensionCatalog]
}

// Resolver lists field options for one tenant.
type Resolver struct {
	tenant config.TenantConfig
	client CatalogClient
	store  cache.Store
}

// NewResolver creates a field resolver for one tenant.
func NewResolver(tenant config.TenantConfig, client CatalogClient, store cache.Store) *Resolver {
	return &Resolver{tenant: tenant, client: client, store: store}
}

// Fields resolves the option list of one kind. Unknown kinds and upstream
// failures yield a non-OK schema with an empty option list rather than an
// error.
func (r *Resolver) Fields(ctx context.Context, kind string) Schema {
	switch kind {
	case KindDimensions:
		return r.columnFields(ctx, columnTypeDimension)
	case KindMetrics:
		return r.columnFields(ctx, columnTypeMetric)
	case KindCustomDimensions:
		return r.customDimensionFields(ctx)
	default:
		return Schema{Error: fmt.Sprintf("unknown field kind %q", kind), Options: []Option{}}
	}
}

func (r *Resolver) columnFields(ctx context.Context, columnType string) Schema {
	key := cache.Key(r.tenant.ID, "columns")
	result := cache.GetOrFetch(ctx, r.store, key, CatalogTTL, r.client.ListColumns)
	if !result.Success {
		return Schema{Error: result.Error, Options: []Option{}}
	}

	options := []Option{}
	for _, col := range result.Data.Items {
		if col.Attributes.Type != columnType {
			continue
		}
		if col.Attributes.Status == statusDeprecated {
			continue
		}
		if columnType == columnTypeDimension && strings.HasPrefix(col.ID, genericDimensionPrefix) {
			continue
		}
		options = append(options, expandColumn(col)...)
	}

	return Schema{OK: true, Options: options}
}

// expandColumn turns one catalog entry into options, expanding templated
// XX entries over their index range (e.g. ga:goalXXValue into
// ga:goal1Value .. ga:goal20Value).
func expandColumn(col analytics.Column) []Option {
	if !strings.Contains(col.ID, templatePlaceholder) {
		return []Option{{Label: col.Attributes.UIName, Value: col.ID}}
	}

	min, errMin := strconv.Atoi(col.Attributes.MinTemplateIndex)
	max, errMax := strconv.Atoi(col.Attributes.MaxTemplateIndex)
	if errMin != nil || errMax != nil || min > max {
		return nil
	}

	options := make([]Option, 0, max-min+1)
	for i := min; i <= max; i++ {
		idx := strconv.Itoa(i)
		options = append(options, Option{
			Label: strings.Replace(col.Attributes.UIName, templatePlaceholder, idx, 1),
			Value: strings.Replace(col.ID, templatePlaceholder, idx, 1),
		})
	}
	return options
}

func (r *Resolver) customDimensionFields(ctx context.Context) Schema {
	settings := r.tenant.Settings
	if settings.AccountID == "" || settings.WebPropertyID == "" {
		return Schema{Error: "account_id and webproperty_id are not configured", Options: []Option{}}
	}

	key := cache.Key(r.tenant.ID, "customdimensions")
	result := cache.GetOrFetch(ctx, r.store, key, CatalogTTL,
		func(ctx context.Context) models.ApiResult[string, analytics.CustomDimensionCatalog] {
			return r.client.ListCustomDimensions(ctx, settings.AccountID, settings.WebPropertyID)
		})
	if !result.Success {
		return Schema{Error: result.Error, Options: []Option{}}
	}

	options := []Option{}
	for _, dim := range result.Data.Items {
		if !dim.Active {
			continue
		}
		options = append(options, Option{Label: dim.Name, Value: dim.ID})
	}

	return Schema{OK: true, Options: options}
}
