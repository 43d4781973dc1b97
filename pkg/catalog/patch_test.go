package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	catalogs map[string]Catalog
	saveErr  error
}

func (m *memStore) FindByTitle(title string) (Catalog, error) {
	for _, c := range m.catalogs {
		if c.Title == title {
			return c, nil
		}
	}
	return Catalog{}, errNotFound
}

func (m *memStore) ReplaceAndSave(c Catalog) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.catalogs[c.ID] = c
	return nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "catalog not found" }

func newAppsCatalog() Catalog {
	return Catalog{
		ID:    "cat1",
		Title: "Apps",
		Manifest: Manifest{
			Commands: []Command{
				{ID: "apps-list", Group: "apps", Name: "apps:list", HTTPMethod: "GET", HTTPPath: "/apps", ServiceID: "apps-api"},
			},
		},
		Enabled: true,
	}
}

func TestApplyRequiresOverwriteFlag(t *testing.T) {
	store := &memStore{catalogs: map[string]Catalog{"cat1": newAppsCatalog()}}
	_, err := Apply(store, PatchRequest{TargetCatalogTitle: "Apps"})
	require.ErrorIs(t, err, ErrOverwriteRequired)
}

func TestApplyReplacesSingleMatch(t *testing.T) {
	store := &memStore{catalogs: map[string]Catalog{"cat1": newAppsCatalog()}}
	req := PatchRequest{
		TargetCatalogTitle:       "Apps",
		OverwriteExistingCatalog: true,
		Operations: []Operation{
			{
				Key:         MatchKey{Group: "apps", Name: "apps:list", HTTPMethod: "get", HTTPPath: " /apps "},
				Replacement: Command{Group: "apps", Name: "apps:list", HTTPMethod: "GET", HTTPPath: "/v2/apps", ServiceID: "apps-api"},
			},
		},
	}

	result, err := Apply(store, req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedOperationCount)
	assert.Equal(t, 1, result.FinalCommandCount)
	require.Len(t, result.Catalog.Manifest.Commands, 1)
	assert.Equal(t, "/v2/apps", result.Catalog.Manifest.Commands[0].HTTPPath)
	assert.Equal(t, "apps-list", result.OperationResults[0].CanonicalID)
	assert.Equal(t, 1, result.FinalProviderContractCount)
}

func TestApplyTargetNotFoundStrict(t *testing.T) {
	store := &memStore{catalogs: map[string]Catalog{"cat1": newAppsCatalog()}}
	req := PatchRequest{
		TargetCatalogTitle:       "Apps",
		OverwriteExistingCatalog: true,
		FailOnMissing:            true,
		Operations: []Operation{
			{Key: MatchKey{Group: "apps", Name: "apps:delete", HTTPMethod: "DELETE", HTTPPath: "/apps"}},
		},
	}

	result, err := Apply(store, req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTargetNotFound, result.OperationResults[0].Kind)
	assert.Equal(t, 0, result.AppliedOperationCount)
}

func TestApplyTargetNotFoundLenientSkips(t *testing.T) {
	store := &memStore{catalogs: map[string]Catalog{"cat1": newAppsCatalog()}}
	req := PatchRequest{
		TargetCatalogTitle:       "Apps",
		OverwriteExistingCatalog: true,
		FailOnMissing:            false,
		Operations: []Operation{
			{Key: MatchKey{Group: "apps", Name: "apps:delete", HTTPMethod: "DELETE", HTTPPath: "/apps"}},
		},
	}

	result, err := Apply(store, req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.OperationResults[0].Kind)
}

func TestApplyAmbiguousMatch(t *testing.T) {
	cat := newAppsCatalog()
	cat.Manifest.Commands = append(cat.Manifest.Commands, Command{
		ID: "apps-list-2", Group: "apps", Name: "apps:list", HTTPMethod: "GET", HTTPPath: "/apps",
	})
	store := &memStore{catalogs: map[string]Catalog{"cat1": cat}}

	req := PatchRequest{
		TargetCatalogTitle:       "Apps",
		OverwriteExistingCatalog: true,
		FailOnAmbiguous:          true,
		Operations: []Operation{
			{Key: MatchKey{Group: "apps", Name: "apps:list", HTTPMethod: "GET", HTTPPath: "/apps"}},
		},
	}

	result, err := Apply(store, req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTargetAmbiguous, result.OperationResults[0].Kind)
	assert.Equal(t, 2, result.OperationResults[0].MatchedCount)
}

func TestApplyRederivesProviderContractsNeverStale(t *testing.T) {
	cat := newAppsCatalog()
	cat.Manifest.ProviderContracts = []ProviderContract{{CommandID: "stale", Argument: "whatever"}}
	store := &memStore{catalogs: map[string]Catalog{"cat1": cat}}

	req := PatchRequest{
		TargetCatalogTitle:       "Apps",
		OverwriteExistingCatalog: true,
		Operations:               nil,
	}
	result, err := Apply(store, req)
	require.NoError(t, err)
	require.Len(t, result.Catalog.Manifest.ProviderContracts, 1)
	assert.Equal(t, "apps-list", result.Catalog.Manifest.ProviderContracts[0].CommandID)
}

func TestSortAndDedupCommandsCanonicalOrder(t *testing.T) {
	commands := []Command{
		{Group: "b", Name: "z", HTTPMethod: "GET", HTTPPath: "/z"},
		{Group: "a", Name: "y", HTTPMethod: "GET", HTTPPath: "/y"},
		{Group: "a", Name: "y", HTTPMethod: "GET", HTTPPath: "/y"},
	}
	out := sortAndDedupCommands(commands)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Group)
	assert.Equal(t, "b", out[1].Group)
}
