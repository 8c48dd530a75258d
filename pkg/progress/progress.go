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

// Package progress carries one-way progress notifications from a download
// to whoever is displaying it.
package progress

import (
	"sync"
	"time"
)

// 🚦 Stage is a phase of a download. Stages only move forward.
type Stage int

const (
	StageAnalyzing Stage = iota
	StageDiscovering
	StageDownloading
	StageComplete
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageAnalyzing:
		return "analyzing"
	case StageDiscovering:
		return "discovering"
	case StageDownloading:
		return "downloading"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// 📣 Event is a single progress notification. Count fields are zero when
// they do not apply to the stage.
type Event struct {
	Stage          Stage
	Percent        int
	Message        string
	FilesProcessed int
	TotalFiles     int
	BatchIndex     int
	TotalBatches   int
	Elapsed        time.Duration
}

// 📬 Sink receives events. It must not block for long: events are emitted
// from the download goroutine and nothing waits for a reply.
type Sink func(Event)

// Nop discards events
func Nop(Event) {}

// 🎚️ Emitter forwards events to a sink while keeping the ordering promise:
// stages never go backwards and Percent never decreases within a stage.
// Out-of-order events are clamped, not dropped.
type Emitter struct {
	mu      sync.Mutex
	sink    Sink
	started bool
	stage   Stage
	percent int
}

// 🏭 NewEmitter wraps sink; a nil sink discards events
func NewEmitter(sink Sink) *Emitter {
	if sink == nil {
		sink = Nop
	}
	return &Emitter{sink: sink}
}

// Emit clamps and forwards e
func (em *Emitter) Emit(e Event) {
	em.mu.Lock()
	defer em.mu.Unlock()

	e.Percent = max(0, min(100, e.Percent))

	if em.started {
		if e.Stage < em.stage {
			e.Stage = em.stage
		}
		if e.Stage == em.stage && e.Percent < em.percent {
			e.Percent = em.percent
		}
	}

	em.started = true
	em.stage = e.Stage
	em.percent = e.Percent

	em.sink(e)
}

// Percent returns done/total as a whole percentage; total <= 0 is 100
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}

// 📼 Recorder collects events, mostly for tests
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Sink returns a Sink that appends to the recorder
func (r *Recorder) Sink() Sink {
	return func(e Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}
}

// Events returns a copy of everything recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByStage returns the recorded events of one stage
func (r *Recorder) ByStage(stage Stage) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Tee fans one event out to several sinks in order
func Tee(sinks ...Sink) Sink {
	return func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s(e)
			}
		}
	}
}
