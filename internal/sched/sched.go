// Package sched provides the station firmware's cooperative deadline
// scheduler: a sorted list of callbacks keyed by a wake time in
// milliseconds, driven by repeated calls to Tick from the foreground
// loop. There are no goroutines and no blocking waits — §5 requires
// every "wait for" to be expressed as a deadline compared against the
// monotonic millisecond tick, never a suspension point.
//
// Grounded on amken3d-gopper's core/scheduler.go (sorted insertion,
// dispatch-when-due) and core/timer.go (tick/µs conversion helpers),
// adapted from a 32-bit hardware tick counter to an injectable
// millisecond clock so the same scheduler drives both the real firmware
// and cmd/stationfw's host-build foreground loop.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package sched

import "sort"

// Handler is called when its deadline has elapsed. now is the tick at
// which the handler fired. A non-zero return value reschedules the
// handler for that future tick; zero means "done, do not reschedule".
type Handler func(now int64) (next int64)

// entry is one scheduled callback.
type entry struct {
	wake    int64
	handler Handler
	active  bool
}

// Scheduler is a sorted list of pending deadlines. It is not safe for
// concurrent use from more than one goroutine — on real hardware the
// only writer is the foreground loop; ISR-side state crosses into it
// only through the scalar fields the callbacks themselves read.
type Scheduler struct {
	entries []*entry
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Token identifies a scheduled callback so it can be cancelled.
type Token struct {
	e *entry
}

// Schedule registers fn to run at wake (a tick value comparable to the
// now passed to Tick).
func (s *Scheduler) Schedule(wake int64, fn Handler) Token {
	e := &entry{wake: wake, handler: fn, active: true}
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].wake >= wake })
	s.entries = append(s.entries, nil)
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = e
	return Token{e: e}
}

// Cancel deactivates a previously scheduled callback. It is a no-op if
// the callback already fired or was already cancelled.
func (s *Scheduler) Cancel(t Token) {
	if t.e != nil {
		t.e.active = false
	}
}

// Tick dispatches every entry whose deadline is <= now, in deadline
// order. Handlers that return a non-zero next tick are reinserted.
// Call this once per foreground-loop iteration.
func (s *Scheduler) Tick(now int64) {
	due := 0
	for due < len(s.entries) && s.entries[due].wake <= now {
		due++
	}
	if due == 0 {
		return
	}
	firing := s.entries[:due]
	s.entries = append([]*entry{}, s.entries[due:]...)

	for _, e := range firing {
		if !e.active {
			continue
		}
		next := e.handler(now)
		if next > 0 {
			e.wake = next
			e.active = true
			idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].wake >= next })
			s.entries = append(s.entries, nil)
			copy(s.entries[idx+1:], s.entries[idx:])
			s.entries[idx] = e
		}
	}
}

// Pending returns the number of callbacks still scheduled.
func (s *Scheduler) Pending() int {
	n := 0
	for _, e := range s.entries {
		if e.active {
			n++
		}
	}
	return n
}
