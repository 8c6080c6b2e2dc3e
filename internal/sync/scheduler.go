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

package sync

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs the periodic report cycle for every registered tenant.
type Scheduler struct {
	runners  []*ReportRunner
	interval time.Duration
}

// NewScheduler creates a scheduler that triggers each runner at the given
// interval.
func NewScheduler(runners []*ReportRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runners:  runners,
		interval: interval,
	}
}

// Run starts the scheduling loop. It blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("report scheduler starting",
		"interval", s.interval,
		"tenants", len(s.runners),
	)

	// Do an initial cycle immediately
	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("report scheduler stopping")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	for _, runner := range s.runners {
		if ctx.Err() != nil {
			return
		}
		runner.Run(ctx, TriggerSchedule)
	}
}
