package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTripPreservesOrder(t *testing.T) {
	src := []byte(`{"zebra":1,"apple":2,"mango":{"b":1,"a":2}}`)

	var v Value
	require.NoError(t, json.Unmarshal(src, &v))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, string(src), string(out))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Null.Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Number(0).Truthy())
	assert.True(t, Number(1).Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, String("x").Truthy())
}

func TestEqual(t *testing.T) {
	assert.True(t, Number(1).Equal(Number(1)))
	assert.False(t, Number(1).Equal(String("1")))
	a := NewObject().Set("x", Number(1))
	b := NewObject().Set("x", Number(1))
	assert.True(t, a.Equal(b))
}

func TestFromAnyToAny(t *testing.T) {
	in := map[string]any{"a": 1.0, "b": []any{"x", true, nil}}
	v := FromAny(in)
	out := v.ToAny()
	assert.Equal(t, in, out)
}

func TestGetSet(t *testing.T) {
	obj := NewObject().Set("a", String("1"))
	got, ok := obj.Get("a")
	require.True(t, ok)
	s, ok := got.AsString()
	require.True(t, ok)
	assert.Equal(t, "1", s)

	_, ok = obj.Get("missing")
	assert.False(t, ok)
}
