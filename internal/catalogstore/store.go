// Package catalogstore persists command catalogs to a single YAML
// file on disk, implementing catalog.Store for pkg/catalog's patch
// applier.
package catalogstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oattyio/oatty/pkg/catalog"
)

// file is the on-disk shape: a flat list of catalogs keyed by Title
// for lookup, Id for identity.
type file struct {
	Catalogs []catalog.Catalog `yaml:"catalogs"`
}

// Store is a YAML-file-backed catalog.Store. All reads and writes
// round-trip through Path; concurrent use of one Store is guarded by
// mu, while separate Stores pointed at the same file do not coordinate
// with each other.
type Store struct {
	mu   sync.Mutex
	Path string
}

// New returns a Store backed by path, creating the parent directory
// if absent. The file itself is created lazily on first Save.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("catalogstore: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("catalogstore: creating directory for %s: %w", path, err)
	}
	return &Store{Path: path}, nil
}

// FindByTitle implements catalog.Store.
func (s *Store) FindByTitle(title string) (catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return catalog.Catalog{}, err
	}
	for _, c := range f.Catalogs {
		if c.Title == title {
			return c, nil
		}
	}
	return catalog.Catalog{}, fmt.Errorf("catalogstore: no catalog titled %q", title)
}

// ReplaceAndSave implements catalog.Store: it replaces the catalog
// matching c.ID (inserting it if absent) and persists the whole file
// atomically.
func (s *Store) ReplaceAndSave(c catalog.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range f.Catalogs {
		if existing.ID == c.ID {
			f.Catalogs[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		f.Catalogs = append(f.Catalogs, c)
	}

	return s.save(f)
}

// All returns every persisted catalog, for listing and catalog search.
func (s *Store) All() ([]catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Catalogs, nil
}

func (s *Store) load() (*file, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &file{}, nil
		}
		return nil, fmt.Errorf("catalogstore: reading %s: %w", s.Path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalogstore: parsing %s: %w", s.Path, err)
	}
	return &f, nil
}

// save writes f to a temp file and renames it over Path, so a reader
// never observes a partially written catalog file.
func (s *Store) save(f *file) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("catalogstore: marshaling: %w", err)
	}

	tmpPath := s.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("catalogstore: writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalogstore: saving %s: %w", s.Path, err)
	}
	return nil
}
