// Copyright 2025 walteh LLC
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

// Package pool runs independent tasks with a fixed upper bound on how many
// are in flight at once.
package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// 🧩 Task is a unit of work. A task reports its own failure through T; it
// has no error return so that one task can never abort its siblings.
type Task[T any] func(ctx context.Context) T

// 🚑 RecoverFunc turns a panic in task i into a result value
type RecoverFunc[T any] func(i int, recovered any) T

// 🏃 Run executes tasks with at most limit in flight and returns their
// results positionally aligned with tasks. It panics if limit <= 0.
func Run[T any](ctx context.Context, tasks []Task[T], limit int) []T {
	return RunWithRecover(ctx, tasks, limit, nil)
}

// 🏃 RunWithRecover is Run with a hook for panicking tasks. With a nil hook
// a panic is re-raised on the calling goroutine after all tasks finish.
func RunWithRecover[T any](ctx context.Context, tasks []Task[T], limit int, onPanic RecoverFunc[T]) []T {
	if limit <= 0 {
		panic(fmt.Sprintf("pool: limit must be positive, got %d", limit))
	}

	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	// a plain Group, not WithContext: a finished task must never cancel the rest
	var g errgroup.Group
	g.SetLimit(limit)

	panics := make([]any, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					if onPanic != nil {
						results[i] = onPanic(i, r)
						return
					}
					panics[i] = r
				}
			}()
			results[i] = task(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range panics {
		if p != nil {
			panic(fmt.Sprintf("pool: task %d panicked: %v", i, p))
		}
	}

	return results
}
