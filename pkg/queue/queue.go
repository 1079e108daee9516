// Lodestone Core
// Copyright (c) 2026 The Lodestone Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Lodestone Core.
//
// Lodestone Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lodestone Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Lodestone Core.  If not, see <http://www.gnu.org/licenses/>.

// Package queue implements single-flight admission control: at most one
// entry is active at a time and the rest wait in FIFO order.
//
// Positions are places in line. The active entry is position 1, the first
// waiting entry is position 2 and so on. Position 0 means the entry was
// cancelled before it became active.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
)

// ErrAlreadyQueued is returned when an id is already waiting or active.
var ErrAlreadyQueued = errors.New("id is already queued")

type Kind string

const (
	KindDirect  Kind = "direct"
	KindTorrent Kind = "torrent"
)

type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeCancelled Outcome = "cancelled"
)

type ticketState int

const (
	stateWaiting ticketState = iota
	stateActive
	stateCancelled
	stateFinished
)

// Entry identifies a queued item.
type Entry struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

// Snapshot is a point-in-time view of the queue.
type Snapshot struct {
	Active  *Entry  `json:"active,omitempty"`
	Waiting []Entry `json:"waiting"`
}

// Queue is safe for concurrent use. The zero value is not usable, use New.
type Queue struct {
	active  *Ticket
	waiting []*Ticket
	mu      syncutil.Mutex
}

func New() *Queue {
	return &Queue{}
}

// Ticket is a caller's handle on one queued entry.
type Ticket struct {
	q       *Queue
	updates chan int
	done    chan struct{}
	id      string
	kind    Kind
	outcome Outcome
	state   ticketState
}

// Enqueue appends id to the waiting list. If nothing is active the entry
// is promoted immediately.
func (q *Queue) Enqueue(id string, kind Kind) (*Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexLocked(id) >= 0 || (q.active != nil && q.active.id == id) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, id)
	}

	t := &Ticket{
		q:       q,
		id:      id,
		kind:    kind,
		state:   stateWaiting,
		updates: make(chan int, 1),
		done:    make(chan struct{}),
	}
	q.waiting = append(q.waiting, t)
	if !q.promoteLocked() {
		t.publish(q.positionLocked(t))
	}
	return t, nil
}

// Finish releases id's slot, or cancels it if it is still waiting. Unknown
// ids are ignored.
func (q *Queue) Finish(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active != nil && q.active.id == id {
		q.finishLocked(q.active)
		return
	}
	if i := q.indexLocked(id); i >= 0 {
		q.cancelLocked(q.waiting[i])
	}
}

// Snapshot returns the active entry and the waiting entries in order.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot{Waiting: make([]Entry, 0, len(q.waiting))}
	if q.active != nil {
		s.Active = &Entry{ID: q.active.id, Kind: q.active.kind}
	}
	for _, t := range q.waiting {
		s.Waiting = append(s.Waiting, Entry{ID: t.id, Kind: t.kind})
	}
	return s
}

// Position returns id's place in line. ok is false for unknown ids.
func (q *Queue) Position(id string) (pos int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active != nil && q.active.id == id {
		return 1, true
	}
	i := q.indexLocked(id)
	if i < 0 {
		return 0, false
	}
	return q.positionLocked(q.waiting[i]), true
}

// Len is the number of waiting and active entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.waiting)
	if q.active != nil {
		n++
	}
	return n
}

func (q *Queue) indexLocked(id string) int {
	for i, t := range q.waiting {
		if t.id == id {
			return i
		}
	}
	return -1
}

// positionLocked must only be called for waiting tickets.
func (q *Queue) positionLocked(t *Ticket) int {
	offset := 1
	if q.active != nil {
		offset = 2
	}
	for i, w := range q.waiting {
		if w == t {
			return i + offset
		}
	}
	return 0
}

// promoteLocked activates the head of the waiting list if the slot is
// free. It reports whether a promotion happened.
func (q *Queue) promoteLocked() bool {
	if q.active != nil || len(q.waiting) == 0 {
		return false
	}
	head := q.waiting[0]
	q.waiting = q.waiting[1:]
	q.active = head
	head.state = stateActive
	head.outcome = OutcomeFulfilled
	head.publish(1)
	close(head.done)
	q.publishWaitingLocked()
	return true
}

func (q *Queue) publishWaitingLocked() {
	for _, t := range q.waiting {
		t.publish(q.positionLocked(t))
	}
}

func (q *Queue) finishLocked(t *Ticket) {
	if q.active != t {
		return
	}
	t.state = stateFinished
	q.active = nil
	q.promoteLocked()
}

func (q *Queue) cancelLocked(t *Ticket) {
	i := q.indexLocked(t.id)
	if i < 0 || q.waiting[i] != t {
		return
	}
	q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
	t.state = stateCancelled
	t.outcome = OutcomeCancelled
	t.publish(0)
	close(t.done)
	q.publishWaitingLocked()
}

// publish replaces any unread position with pos. Caller must hold q.mu.
func (t *Ticket) publish(pos int) {
	select {
	case <-t.updates:
	default:
	}
	t.updates <- pos
}

func (t *Ticket) ID() string {
	return t.id
}

// Wait blocks until the entry is promoted or cancelled. onPosition, when
// not nil, is called with every position change observed, ending with 1
// for a promotion or 0 for a cancellation. Cancelling ctx cancels the
// ticket.
func (t *Ticket) Wait(ctx context.Context, onPosition func(int)) (Outcome, error) {
	report := func(pos int) {
		if onPosition != nil {
			onPosition(pos)
		}
	}
	for {
		select {
		case pos := <-t.updates:
			select {
			case <-t.done:
				// the final position is delivered below
			default:
				report(pos)
				continue
			}
		case <-t.done:
		case <-ctx.Done():
			t.Cancel()
			report(0)
			return OutcomeCancelled, fmt.Errorf("queue wait cancelled: %w", ctx.Err())
		}

		t.q.mu.Lock()
		outcome := t.outcome
		t.q.mu.Unlock()
		if outcome == OutcomeFulfilled {
			report(1)
		} else {
			report(0)
		}
		return outcome, nil
	}
}

// Cancel removes a waiting entry and resolves Wait as cancelled. On an
// active entry it releases the slot like Finish. Repeated calls are no-ops.
func (t *Ticket) Cancel() {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()

	switch t.state {
	case stateWaiting:
		t.q.cancelLocked(t)
	case stateActive:
		t.q.finishLocked(t)
	case stateCancelled, stateFinished:
	}
}

// Finish releases the slot held by an active entry. A waiting entry is
// cancelled instead. Repeated calls are no-ops.
func (t *Ticket) Finish() {
	t.Cancel()
}

// Active reports whether the ticket currently holds the slot.
func (t *Ticket) Active() bool {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.state == stateActive
}
