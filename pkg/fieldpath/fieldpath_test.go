package fieldpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/value"
)

func buildDoc() value.Value {
	item := value.NewObject().Set("id", value.String("abc")).Set("name", value.String("widget"))
	return value.NewObject().
		Set("meta", value.NewObject().Set("id", value.String("root-id"))).
		Set("items", value.Array(item))
}

func TestResolveJSONFindsScalarCandidates(t *testing.T) {
	doc := buildDoc()
	cands := ResolveJSON(doc, "id")
	require.Len(t, cands, 2)
	assert.Equal(t, []string{"meta", "id"}, cands[0].Path)
	assert.Equal(t, []string{"items", "0", "id"}, cands[1].Path)
}

func TestResolveJSONExcludesNonScalarValues(t *testing.T) {
	doc := value.NewObject().Set("items", value.Array(value.NewObject()))
	cands := ResolveJSON(doc, "items")
	assert.Empty(t, cands)
}

func TestSelectByPath(t *testing.T) {
	doc := buildDoc()
	v, ok := SelectByPath(doc, "items[0].name")
	require.True(t, ok)
	s, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "widget", s)
}

func TestSelectByPathMissing(t *testing.T) {
	doc := buildDoc()
	_, ok := SelectByPath(doc, "items[0].missing")
	assert.False(t, ok)
}

func TestDiagnoseZeroCandidates(t *testing.T) {
	d := Diagnose("step find", "price", nil, []string{"id", "name"})
	assert.Contains(t, d.NextStep, "id")
	assert.Contains(t, d.NextStep, "name")
}

func TestDiagnoseSingleCandidate(t *testing.T) {
	cands := []Candidate{{Path: []string{"meta", "id"}}}
	d := Diagnose("step find", "id", cands, nil)
	assert.Contains(t, d.RuntimeMessage, "did you mean")
	assert.Contains(t, d.RuntimeMessage, "meta.id")
}

func TestDiagnoseAmbiguousCandidates(t *testing.T) {
	cands := []Candidate{{Path: []string{"meta", "id"}}, {Path: []string{"items", "0", "id"}}}
	d := Diagnose("step find", "id", cands, nil)
	assert.Contains(t, d.RuntimeMessage, "ambiguous")
}

func TestResolveSchemaRejectsNonObjectParent(t *testing.T) {
	leaf := &SchemaProperty{Type: "string"}
	root := &SchemaProperty{Type: "object", Properties: map[string]*SchemaProperty{"name": leaf}}
	cands := ResolveSchema(root, "name")
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"name"}, cands[0].Path)
}

func TestResolveSchemaArrayProjection(t *testing.T) {
	item := &SchemaProperty{Type: "object", Properties: map[string]*SchemaProperty{
		"id": {Type: "string"},
	}}
	root := &SchemaProperty{Type: "object", Properties: map[string]*SchemaProperty{
		"items": {Type: "array", Items: item},
	}}
	cands := ResolveSchema(root, "id")
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"items", "[]", "id"}, cands[0].Path)
}

func TestIsArrayProjectionSegment(t *testing.T) {
	assert.True(t, IsArrayProjectionSegment("[]"))
	assert.True(t, IsArrayProjectionSegment("*"))
	assert.True(t, IsArrayProjectionSegment("3"))
	assert.False(t, IsArrayProjectionSegment("name"))
}

func TestScoreCandidatesPrefersSuffixMatch(t *testing.T) {
	cands := []Candidate{
		{Path: []string{"items", "0", "id"}},
		{Path: []string{"meta", "id"}},
	}
	ranked := ScoreCandidates(cands, "meta.id")
	assert.Equal(t, []string{"meta", "id"}, ranked[0].Path)
}
