package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New[string]()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Unsubscribe()
	defer s2.Unsubscribe()

	b.Publish("hello", nil)

	select {
	case v := <-s1.C():
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("s1 did not receive event")
	}
	select {
	case v := <-s2.C():
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("s2 did not receive event")
	}
}

func TestPublishLagDropsRatherThanBlocks(t *testing.T) {
	b := New[int]()
	s := b.Subscribe()
	defer s.Unsubscribe()

	var lagged bool
	for i := 0; i < defaultBufferSize+5; i++ {
		b.Publish(i, func(subscriberID int) { lagged = true })
	}
	require.True(t, lagged)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[int]()
	s := b.Subscribe()
	s.Unsubscribe()

	_, ok := <-s.C()
	assert.False(t, ok)
}
