package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySeedsStopped(t *testing.T) {
	reg := NewRegistry([]Metadata{{Name: "weather", Command: "weather-plugin"}}, nil)
	snap, ok := reg.Get("weather")
	require.True(t, ok)
	assert.Equal(t, StatusStopped, snap.Status)
}

func TestRegistryApplyTransitionsStatus(t *testing.T) {
	reg := NewRegistry([]Metadata{{Name: "weather"}}, nil)

	reg.apply(Event{Kind: EventStarting, Name: "weather"})
	snap, _ := reg.Get("weather")
	assert.Equal(t, StatusStarting, snap.Status)

	reg.apply(Event{Kind: EventStarted, Name: "weather"})
	reg.apply(Event{Kind: EventToolsUpdated, Name: "weather", Tools: []string{"get_forecast"}})
	snap, _ = reg.Get("weather")
	assert.Equal(t, StatusRunning, snap.Status)
	assert.Equal(t, []string{"get_forecast"}, snap.Tools)

	reg.apply(Event{Kind: EventStopping, Name: "weather"})
	reg.apply(Event{Kind: EventStopped, Name: "weather"})
	snap, _ = reg.Get("weather")
	assert.Equal(t, StatusStopped, snap.Status)
}

func TestRegistryApplyIgnoresUnregisteredPlugin(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.apply(Event{Kind: EventStarted, Name: "ghost"})
	_, ok := reg.Get("ghost")
	assert.False(t, ok)
}

func TestRegistryListReturnsAllEntries(t *testing.T) {
	reg := NewRegistry([]Metadata{{Name: "a"}, {Name: "b"}}, nil)
	list := reg.List()
	assert.Len(t, list, 2)
}
