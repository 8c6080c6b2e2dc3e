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

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/profilebeam/gasync/internal/models"
)

// GetOrFetch returns the cached API result under key, or invokes fetch on a
// miss. Only successful results are cached: a failed fetch is returned to
// the caller uncached, so the next call retries immediately instead of
// pinning the failure for the TTL window.
func GetOrFetch[R any, D any](
	ctx context.Context,
	store Store,
	key string,
	ttl time.Duration,
	fetch func(context.Context) models.ApiResult[R, D],
) models.ApiResult[R, D] {
	var cached models.ApiResult[R, D]
	hit, err := store.Get(ctx, key, &cached)
	if err != nil {
		slog.Warn("cache read failed, falling through to fetch", "key", key, "error", err)
	}
	if hit && cached.Success {
		return cached
	}

	result := fetch(ctx)
	if result.Success {
		if err := store.Set(ctx, key, result, ttl); err != nil {
			slog.Warn("failed to cache API result", "key", key, "error", err)
		}
	}

	return result
}
