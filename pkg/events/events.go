// Package events publishes table and ledger events to other services.
package events

import (
	"context"
	"sync"
)

// subjects
const (
	SubjectHandCompleted = "table.hand.completed"
	SubjectTransaction   = "ledger.transaction"
)

// Publisher publishes an event on a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
}

// Noop drops all events
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, string, interface{}) error {
	return nil
}

// Message is an event captured by Memory
type Message struct {
	Subject string
	Event   interface{}
}

// Memory keeps every published event in memory
type Memory struct {
	mu       sync.Mutex
	messages []Message
}

// Publish implements Publisher
func (m *Memory) Publish(_ context.Context, subject string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, Message{Subject: subject, Event: event})
	return nil
}

// Messages returns the events published on a subject
func (m *Memory) Messages(subject string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, 0)
	for _, msg := range m.messages {
		if msg.Subject == subject {
			out = append(out, msg)
		}
	}

	return out
}
