package mq

import (
	"context"
	"errors"
	"sync"
)

// DefaultRetained is how many published messages Memory keeps per channel.
const DefaultRetained = 1024

// Memory is an in-process Backend. The most recent published messages are
// kept so they can be inspected and are fanned out to active subscribers.
type Memory struct {
	retain      int
	mu          sync.Mutex
	published   map[string][]Message
	subscribers map[string][]chan Message
	closed      bool
}

func NewMemory() *Memory {
	return NewMemoryRetaining(DefaultRetained)
}

// NewMemoryRetaining returns a Memory that keeps at most retain messages per
// channel, dropping the oldest first.
func NewMemoryRetaining(retain int) *Memory {
	if retain < 1 {
		retain = 1
	}
	return &Memory{
		retain:      retain,
		published:   map[string][]Message{},
		subscribers: map[string][]chan Message{},
	}
}

func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", errors.New("memory backend closed")
	}

	msg := Message{ID: newMessageID(), Data: append([]byte(nil), data...), Attributes: attrs}
	kept := append(m.published[channel], msg)
	if over := len(kept) - m.retain; over > 0 {
		kept = append(kept[:0:0], kept[over:]...)
	}
	m.published[channel] = kept
	for _, sub := range m.subscribers[channel] {
		select {
		case sub <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe delivers messages published after the call until ctx is done.
// Messages are dropped for subscribers that fall more than 64 behind.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	sub := make(chan Message, 64)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("memory backend closed")
	}
	m.subscribers[channel] = append(m.subscribers[channel], sub)
	m.mu.Unlock()

	defer m.unsubscribe(channel, sub)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-sub:
			_ = handler(ctx, msg)
		}
	}
}

// Published returns the retained messages sent to channel, oldest first.
func (m *Memory) Published(channel string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.published[channel]...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) unsubscribe(channel string, sub chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subscribers[channel]
	for i, s := range subs {
		if s == sub {
			m.subscribers[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
