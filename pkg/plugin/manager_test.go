package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/value"
)

func TestStartPluginUnknownName(t *testing.T) {
	mgr := NewManager(nil, nil, nil)
	err := mgr.StartPlugin(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestStartPluginDisabled(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo", Disabled: true}}, nil, nil)
	err := mgr.StartPlugin(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPluginDisabled)
}

func TestStartPluginAlreadyActive(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo"}}, nil, nil)
	mgr.active["p"] = &connection{config: mgr.configs["p"], state: State{Status: StatusRunning}}

	err := mgr.StartPlugin(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientAlreadyExists)
}

func TestStatusConsultsStartingBeforeActive(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo"}}, nil, nil)
	mgr.starting["p"] = struct{}{}
	assert.Equal(t, StatusStarting, mgr.Status("p"))
}

func TestStatusUnknownForUnconfiguredName(t *testing.T) {
	mgr := NewManager(nil, nil, nil)
	assert.Equal(t, StatusUnknown, mgr.Status("ghost"))
}

func TestStatusStoppedForConfiguredButInactive(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo"}}, nil, nil)
	assert.Equal(t, StatusStopped, mgr.Status("p"))
}

func TestStopPluginNotActive(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo"}}, nil, nil)
	err := mgr.StopPlugin(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestCallToolUnknownPlugin(t *testing.T) {
	mgr := NewManager(nil, nil, nil)
	_, err := mgr.CallTool(context.Background(), "ghost", "tool", value.Null)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestBreakerForReturnsSameInstanceAcrossCalls(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo"}}, nil, nil)

	first := mgr.breakerFor("p", 3)
	second := mgr.breakerFor("p", 3)
	assert.Same(t, first, second)
}

func TestBreakerForSurvivesConnectionReplacement(t *testing.T) {
	mgr := NewManager([]Config{{Name: "p", Command: "echo"}}, nil, nil)

	before := mgr.breakerFor("p", 3)
	mgr.mu.Lock()
	mgr.active["p"] = &connection{config: mgr.configs["p"], state: State{Status: StatusRunning}}
	mgr.mu.Unlock()

	after := mgr.breakerFor("p", 3)
	assert.Same(t, before, after, "restarting a plugin must not reset its restart breaker")
}
