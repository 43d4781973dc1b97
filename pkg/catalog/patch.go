package catalog

import (
	"fmt"

	oerrors "github.com/oattyio/oatty/pkg/errors"
)

// OutcomeKind classifies one patch operation's result.
type OutcomeKind string

const (
	OutcomeApplied        OutcomeKind = "applied"
	OutcomeTargetNotFound  OutcomeKind = "target_not_found"
	OutcomeTargetAmbiguous OutcomeKind = "target_ambiguous"
	OutcomeSkipped         OutcomeKind = "skipped"
)

// OperationResult is the per-operation outcome of a patch run.
type OperationResult struct {
	Index       int
	Kind        OutcomeKind
	Message     string
	MatchedCount int
	CanonicalID string
}

// Operation replaces one command matching Key with Replacement.
type Operation struct {
	Key         MatchKey
	Replacement Command
}

// PatchRequest is the input to Apply (spec §4.12).
type PatchRequest struct {
	TargetCatalogTitle      string
	Operations              []Operation
	FailOnMissing           bool
	FailOnAmbiguous         bool
	OverwriteExistingCatalog bool
}

// PatchResult is Apply's return value.
type PatchResult struct {
	CatalogID                 string
	RequestedOperationCount   int
	AppliedOperationCount     int
	FinalCommandCount         int
	FinalProviderContractCount int
	OperationResults          []OperationResult
	Catalog                   Catalog
}

// ErrOverwriteRequired is returned when OverwriteExistingCatalog is
// false (spec §4.12 step 1).
var ErrOverwriteRequired = fmt.Errorf("catalog: overwrite_existing_catalog is false")

// SaveError wraps a persistence failure with the catalog id it was
// attempting to save and which step failed, per §4.12 step 5.
type SaveError struct {
	CatalogID string
	Stage     string // "replace", "insert", or "save"
	Cause     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("catalog: %s failed for %q: %v", e.Stage, e.CatalogID, e.Cause)
}

func (e *SaveError) Unwrap() error { return e.Cause }

// Store persists and locates catalogs by title, and commits a
// replace-and-save after a patch is computed.
type Store interface {
	FindByTitle(title string) (Catalog, error)
	ReplaceAndSave(c Catalog) error
}

// Apply runs a patch request against the store's catalog matching
// TargetCatalogTitle (spec §4.12).
func Apply(store Store, req PatchRequest) (PatchResult, error) {
	if !req.OverwriteExistingCatalog {
		return PatchResult{}, ErrOverwriteRequired
	}

	cat, err := store.FindByTitle(req.TargetCatalogTitle)
	if err != nil {
		return PatchResult{}, fmt.Errorf("catalog: locating %q: %w", req.TargetCatalogTitle, err)
	}

	commands := make([]Command, len(cat.Manifest.Commands))
	copy(commands, cat.Manifest.Commands)

	results := make([]OperationResult, len(req.Operations))
	applied := 0

	for i, op := range req.Operations {
		key := op.Key.normalized()
		matches := matchIndices(commands, key)

		switch len(matches) {
		case 0:
			if req.FailOnMissing {
				results[i] = OperationResult{Index: i, Kind: OutcomeTargetNotFound, Message: "target command not found"}
			} else {
				results[i] = OperationResult{Index: i, Kind: OutcomeSkipped, Message: "target command not found"}
			}
		case 1:
			idx := matches[0]
			replacement := op.Replacement
			if replacement.ID == "" {
				replacement.ID = commands[idx].ID
			}
			commands[idx] = replacement
			results[i] = OperationResult{Index: i, Kind: OutcomeApplied, CanonicalID: replacement.ID, MatchedCount: 1}
			applied++
		default:
			if req.FailOnAmbiguous {
				results[i] = OperationResult{Index: i, Kind: OutcomeTargetAmbiguous, Message: "target command match is ambiguous", MatchedCount: len(matches)}
			} else {
				results[i] = OperationResult{Index: i, Kind: OutcomeSkipped, Message: "target command match is ambiguous", MatchedCount: len(matches)}
			}
		}
	}

	commands = sortAndDedupCommands(commands)
	contracts := deriveProviderContracts(commands)

	final := cat
	final.Manifest.Commands = commands
	final.Manifest.ProviderContracts = contracts

	if err := store.ReplaceAndSave(final); err != nil {
		var saveErr *SaveError
		if oerrors.As(err, &saveErr) {
			return PatchResult{}, saveErr
		}
		return PatchResult{}, &SaveError{CatalogID: final.ID, Stage: "save", Cause: err}
	}

	return PatchResult{
		CatalogID:                  final.ID,
		RequestedOperationCount:    len(req.Operations),
		AppliedOperationCount:      applied,
		FinalCommandCount:          len(commands),
		FinalProviderContractCount: len(contracts),
		OperationResults:           results,
		Catalog:                    final,
	}, nil
}

func matchIndices(commands []Command, key MatchKey) []int {
	var matches []int
	for i, c := range commands {
		if keyOf(c) == key {
			matches = append(matches, i)
		}
	}
	return matches
}
