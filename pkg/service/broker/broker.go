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

// Package broker fans notifications from the core out to every subscriber
// (API WebSocket sessions, the CLI's event printer) without blocking the
// sender.
package broker

import (
	"context"
	"slices"

	"github.com/LodestoneProject/lodestone-core/pkg/api/models"
	"github.com/LodestoneProject/lodestone-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
}

func (s subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

// Broker manages notification subscriptions and broadcasts messages to all subscribers.
// Slow consumers drop notifications instead of blocking the broadcast loop.
type Broker struct {
	source      <-chan models.Notification
	subscribers map[int]subscriber
	mu          syncutil.RWMutex
	nextID      int
}

// NewBroker creates a broker reading from source.
func NewBroker(source <-chan models.Notification) *Broker {
	return &Broker{
		source:      source,
		subscribers: make(map[int]subscriber),
	}
}

// Run broadcasts until the source closes or ctx is done, then closes every
// subscriber channel.
func (b *Broker) Run(ctx context.Context) error {
	defer b.closeAllSubscribers()
	for {
		select {
		case notif, ok := <-b.source:
			if !ok {
				log.Debug().Msg("broker: source channel closed")
				return nil
			}
			b.broadcast(notif)
		case <-ctx.Done():
			log.Debug().Msg("broker: context cancelled, shutting down")
			return nil
		}
	}
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.wants(notif.Method) {
			continue
		}
		select {
		case sub.ch <- notif:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a subscriber. With no methods every notification is
// delivered, otherwise only the listed methods.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	b.subscribers[id] = subscriber{ch: ch, methods: methods}

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")

	return ch, id
}

// Unsubscribe removes a subscription and closes its channel.
// It's safe to call this multiple times with the same ID.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]subscriber)
}
