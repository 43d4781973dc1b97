package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
)

func TestNoopRunnerReturnsPreview(t *testing.T) {
	r := NoopRunner{}
	out, err := r.Run(context.Background(), CommandSpec{ID: "demo.list"}, value.NewObject(), value.Null, runctx.New())
	require.NoError(t, err)
	preview, ok := out.Get("preview")
	require.True(t, ok)
	b, _ := preview.AsBool()
	assert.True(t, b)
}

func TestCustomRunnerInvokesFn(t *testing.T) {
	called := false
	r := CustomRunner{Fn: func(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
		called = true
		return value.String("ok"), nil
	}}
	out, err := r.Run(context.Background(), CommandSpec{}, value.Null, value.Null, runctx.New())
	require.NoError(t, err)
	assert.True(t, called)
	s, _ := out.AsString()
	assert.Equal(t, "ok", s)
}

func TestRegistryRunnerDispatchesByKind(t *testing.T) {
	httpCalled, pluginCalled := false, false
	reg := RegistryRunner{
		HTTP: fakeHTTPExec{fn: func() { httpCalled = true }},
		Plugin: fakePluginExec{fn: func() { pluginCalled = true }},
	}

	_, err := reg.Run(context.Background(), CommandSpec{Kind: ExecHTTP}, value.Null, value.Null, runctx.New())
	require.NoError(t, err)
	assert.True(t, httpCalled)
	assert.False(t, pluginCalled)

	_, err = reg.Run(context.Background(), CommandSpec{Kind: ExecPlugin}, value.Null, value.Null, runctx.New())
	require.NoError(t, err)
	assert.True(t, pluginCalled)
}

func TestParseContentRange(t *testing.T) {
	pag, ok := ParseContentRange("items 0-24/100")
	require.True(t, ok)
	assert.Equal(t, "items", pag.Field)
	assert.Equal(t, 0, pag.RangeStart)
	assert.Equal(t, 24, pag.RangeEnd)
	assert.Equal(t, 100, pag.Max)
}

func TestParseContentRangeMalformed(t *testing.T) {
	_, ok := ParseContentRange("not-a-range")
	assert.False(t, ok)
}

func TestInterpolatePath(t *testing.T) {
	with := value.NewObject().Set("org", value.String("acme")).Set("repo", value.String("widgets"))
	out, err := interpolatePath("/orgs/{org}/repos/{repo}", with)
	require.NoError(t, err)
	assert.Equal(t, "/orgs/acme/repos/widgets", out)
}

func TestInterpolatePathMissingArg(t *testing.T) {
	_, err := interpolatePath("/orgs/{org}", value.NewObject())
	assert.Error(t, err)
}

type fakeHTTPExec struct{ fn func() }

func (f fakeHTTPExec) ExecuteHTTP(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
	f.fn()
	return value.Null, nil
}

type fakePluginExec struct{ fn func() }

func (f fakePluginExec) ExecutePlugin(ctx context.Context, spec CommandSpec, with, body value.Value, rc *runctx.RunContext) (value.Value, error) {
	f.fn()
	return value.Null, nil
}
