// Boardprov
// Copyright (c) 2026 The Boardprov Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Boardprov.
//
// Boardprov is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Boardprov is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Boardprov.  If not, see <http://www.gnu.org/licenses/>.

package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RetryBudget bounds re-attempts for one operation. Created fresh per
// retried operation, never shared.
type RetryBudget struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Retry runs op up to budget.MaxAttempts times with a fixed backoff
// between attempts. Only operations with idempotent re-attempt semantics
// belong here. Returns nil on the first success, or the last error after
// the budget is spent.
func Retry(ctx context.Context, clock clockwork.Clock, budget RetryBudget, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= budget.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		log.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", budget.MaxAttempts).
			Msg("operation failed")

		if attempt == budget.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-clock.After(budget.Backoff):
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", budget.MaxAttempts, lastErr)
}
