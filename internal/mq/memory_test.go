package mq

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRetainsMostRecentMessages(t *testing.T) {
	m := NewMemoryRetaining(3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := m.Publish(ctx, "events", []byte(strconv.Itoa(i)), nil)
		require.NoError(t, err)
	}
	_, err := m.Publish(ctx, "other", []byte("x"), nil)
	require.NoError(t, err)

	got := m.Published("events")
	require.Len(t, got, 3)
	assert.Equal(t, "7", string(got[0].Data))
	assert.Equal(t, "9", string(got[2].Data))
	assert.Len(t, m.Published("other"), 1)
}

func TestMemoryDefaultRetention(t *testing.T) {
	m := NewMemory()
	for i := 0; i < DefaultRetained+5; i++ {
		_, err := m.Publish(context.Background(), "events", nil, nil)
		require.NoError(t, err)
	}
	assert.Len(t, m.Published("events"), DefaultRetained)
}

func TestMemorySubscribeAndClose(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan Message, 1)

	done := make(chan error, 1)
	go func() {
		done <- m.Subscribe(ctx, "events", func(_ context.Context, msg Message) error {
			received <- msg
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.subscribers["events"]) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := m.Publish(ctx, "events", []byte("hello"), map[string]string{"type": "article.created"})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "hello", string(msg.Data))
		assert.Equal(t, "article.created", msg.Attributes["type"])
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.NoError(t, m.Close())
	_, err = m.Publish(context.Background(), "events", nil, nil)
	assert.Error(t, err)
}
