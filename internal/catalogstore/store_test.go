package catalogstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oattyio/oatty/pkg/catalog"
)

func TestFindByTitleMissingFileReturnsError(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "catalogs.yaml"))
	require.NoError(t, err)

	_, err = s.FindByTitle("apps")
	assert.Error(t, err)
}

func TestReplaceAndSaveThenFindByTitleRoundTrips(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "catalogs.yaml"))
	require.NoError(t, err)

	cat := catalog.Catalog{ID: "cat1", Title: "apps", Enabled: true}
	require.NoError(t, s.ReplaceAndSave(cat))

	found, err := s.FindByTitle("apps")
	require.NoError(t, err)
	assert.Equal(t, "cat1", found.ID)
}

func TestReplaceAndSaveReplacesExistingID(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "catalogs.yaml"))
	require.NoError(t, err)

	require.NoError(t, s.ReplaceAndSave(catalog.Catalog{ID: "cat1", Title: "apps"}))
	require.NoError(t, s.ReplaceAndSave(catalog.Catalog{ID: "cat1", Title: "apps-v2"}))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "apps-v2", all[0].Title)
}

func TestReplaceAndSaveAppendsNewID(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "catalogs.yaml"))
	require.NoError(t, err)

	require.NoError(t, s.ReplaceAndSave(catalog.Catalog{ID: "cat1", Title: "apps"}))
	require.NoError(t, s.ReplaceAndSave(catalog.Catalog{ID: "cat2", Title: "infra"}))

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
