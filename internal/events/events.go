// Package events fans board changes out to the connected clients of a user.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types published by the service.
const (
	ProjectCreated = "project.created"
	ProjectUpdated = "project.updated"
	ProjectDeleted = "project.deleted"
	ColumnsChanged = "columns.changed"
	TaskCreated    = "task.created"
	TaskUpdated    = "task.updated"
	TaskDeleted    = "task.deleted"
	TasksMoved     = "tasks.moved"
	ProfileUpdated = "profile.updated"
)

// Event describes one change to a user's data.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	At        time.Time `json:"at"`
}

// Bus delivers events to subscribers of the same user.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of the user's events and a cancel
	// function that closes it.
	Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error)
	Close() error
}

const subscriberBuffer = 16

// LocalBus delivers events inside the process. Slow subscribers miss
// events instead of blocking publishers.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
	closed bool
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]chan Event)}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, userID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}, nil
	}
	id := b.nextID
	b.nextID++
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan Event)
	}
	b.subs[userID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[userID][id]; ok {
				delete(b.subs[userID], id)
				if len(b.subs[userID]) == 0 {
					delete(b.subs, userID)
				}
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

// Close closes every subscription.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for userID, subs := range b.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subs, userID)
	}
	b.closed = true
	return nil
}

// Subscribers returns the number of open subscriptions of a user.
func (b *LocalBus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
