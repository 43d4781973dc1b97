package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/value"
)

type mapResolver struct {
	root value.Value
}

func (m mapResolver) Resolve(path []string) (value.Value, bool) {
	cur := m.root
	for _, seg := range path {
		next, ok := cur.Get(seg)
		if !ok {
			return value.Null, false
		}
		cur = next
	}
	return cur, true
}

func TestRenderWholeStringTokenPreservesType(t *testing.T) {
	root := value.NewObject().Set("inputs", value.NewObject().Set("count", value.Number(3)))
	r := mapResolver{root: root}

	out, unresolved := Render(value.String("${{ inputs.count }}"), r)
	assert.Empty(t, unresolved)
	n, ok := out.AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(3), n)
}

func TestRenderWholeStringArrayPreserved(t *testing.T) {
	arr := value.Array(value.String("a"), value.String("b"))
	root := value.NewObject().Set("inputs", value.NewObject().Set("list", arr))
	r := mapResolver{root: root}

	out, unresolved := Render(value.String("${{ inputs.list }}"), r)
	assert.Empty(t, unresolved)
	items, ok := out.AsArray()
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestRenderMixedStringConcatenates(t *testing.T) {
	root := value.NewObject().Set("inputs", value.NewObject().Set("name", value.String("world")))
	r := mapResolver{root: root}

	out, unresolved := Render(value.String("hello ${{ inputs.name }}!"), r)
	assert.Empty(t, unresolved)
	s, ok := out.AsString()
	require.True(t, ok)
	assert.Equal(t, "hello world!", s)
}

func TestRenderUnresolvedTokenStaysIntact(t *testing.T) {
	r := mapResolver{root: value.NewObject()}

	out, unresolved := Render(value.String("x=${{ inputs.missing }}"), r)
	require.Len(t, unresolved, 1)
	assert.Equal(t, []string{"inputs", "missing"}, unresolved[0].Path)
	s, ok := out.AsString()
	require.True(t, ok)
	assert.Equal(t, "x=${{ inputs.missing }}", s)
}

func TestRenderPreservesObjectKeyOrderAndArrayOrder(t *testing.T) {
	root := value.NewObject().
		Set("inputs", value.NewObject().Set("a", value.String("A")).Set("b", value.String("B")))
	r := mapResolver{root: root}

	doc := value.NewObject().
		Set("zebra", value.String("${{ inputs.a }}")).
		Set("apple", value.String("${{ inputs.b }}"))

	out, unresolved := Render(doc, r)
	assert.Empty(t, unresolved)
	obj, ok := out.AsObject()
	require.True(t, ok)
	pair := obj.Oldest()
	assert.Equal(t, "zebra", pair.Key)
	pair = pair.Next()
	assert.Equal(t, "apple", pair.Key)
}

func TestScanHandlesNestedBracesInStringLiteral(t *testing.T) {
	root := value.NewObject().Set("inputs", value.NewObject().Set("x", value.String("y")))
	r := mapResolver{root: root}

	// The expr itself is just a dotted path; this verifies the scanner
	// doesn't terminate early on an incidental '}' inside surrounding text.
	out, unresolved := Render(value.String("{literal} ${{ inputs.x }} {more}"), r)
	assert.Empty(t, unresolved)
	s, _ := out.AsString()
	assert.Equal(t, "{literal} y {more}", s)
}

func TestCollectUnresolvedStepTemplates(t *testing.T) {
	r := mapResolver{root: value.NewObject()}
	doc := value.NewObject().
		Set("a", value.String("${{ inputs.x }}")).
		Set("b", value.String("${{ steps.y.z }}"))

	refs := CollectUnresolvedStepTemplates(doc, r)
	require.Len(t, refs, 2)
}
