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

// Package stream publishes normalized events to Redis for the profile-store
// import workers. This is the bridge between enrichment and the profile
// store's ingestion pipeline.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/profilebeam/gasync/internal/models"
)

// Publisher sends normalized events to a Redis list consumed by the
// profile-store importer.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// importTask is the message shape the import workers read off the queue.
type importTask struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Tenant   string                 `json:"tenant"`
	Identity map[string]string      `json:"identity"`
	Event    models.NormalizedEvent `json:"event"`
	QueuedAt string                 `json:"queued_at"`
}

// EmitEvent publishes one event attributed to the given identity claims.
// Identity carries either a profile ID ("id") or an anonymous ID
// ("anonymous_id").
func (p *Publisher) EmitEvent(ctx context.Context, tenant string, identity map[string]string, event models.NormalizedEvent) error {
	task := importTask{
		ID:       uuid.New().String(),
		Type:     "track",
		Tenant:   tenant,
		Identity: identity,
		Event:    event,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	}

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal import task: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(taskJSON)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Debug("published event to import queue",
		"task_id", task.ID,
		"event", event.Event,
		"event_id", event.Context.EventID,
		"tenant", tenant,
		"queue", p.queueName,
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
