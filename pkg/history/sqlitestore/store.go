// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlitestore is a SQLite-backed history.Store: it persists
// one resolved value per (profile, workflow, input) key, optionally
// encrypted at rest.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oattyio/oatty/pkg/history"
	"github.com/oattyio/oatty/pkg/value"
)

// Store is a SQLite-backed history.Store.
type Store struct {
	db            *sql.DB
	encryptionKey *EncryptionKey
}

// Config configures a Store.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// Special value ":memory:" creates an in-memory database.
	Path string

	// MaxOpenConns sets the maximum number of open connections. For
	// SQLite this should stay small to avoid lock contention.
	MaxOpenConns int

	// EnableEncryption enables AES-256-GCM encryption of stored values.
	// Requires OATTY_HISTORY_KEY to be set.
	EnableEncryption bool
}

// New opens (creating if necessary) a SQLite-backed history store.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		connStr += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns == 0 {
		maxConns = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}

	if cfg.EnableEncryption {
		key, err := LoadEncryptionKey()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load encryption key: %w", err)
		}
		if key == nil {
			db.Close()
			return nil, fmt.Errorf("encryption enabled but no key found (set OATTY_HISTORY_KEY)")
		}
		store.encryptionKey = key
	}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS input_defaults (
		profile_id TEXT NOT NULL,
		workflow_id TEXT NOT NULL,
		input_name TEXT NOT NULL,
		value TEXT NOT NULL,
		recorded_at INTEGER NOT NULL,
		PRIMARY KEY (profile_id, workflow_id, input_name)
	)`)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Get implements history.Store.
func (s *Store) Get(key history.Key) (history.StoredValue, bool, error) {
	row := s.db.QueryRow(`SELECT value, recorded_at FROM input_defaults
		WHERE profile_id = ? AND workflow_id = ? AND input_name = ?`,
		key.ProfileID, key.WorkflowID, key.InputName)

	var raw string
	var recordedAt int64
	if err := row.Scan(&raw, &recordedAt); err != nil {
		if err == sql.ErrNoRows {
			return history.StoredValue{}, false, nil
		}
		return history.StoredValue{}, false, fmt.Errorf("failed to look up stored default: %w", err)
	}

	plain, err := s.decryptData([]byte(raw))
	if err != nil {
		return history.StoredValue{}, false, fmt.Errorf("failed to decrypt stored default: %w", err)
	}

	var v value.Value
	if err := json.Unmarshal(plain, &v); err != nil {
		return history.StoredValue{}, false, fmt.Errorf("failed to unmarshal stored default: %w", err)
	}

	return history.StoredValue{Value: v, Timestamp: time.Unix(0, recordedAt)}, true, nil
}

// Put implements history.Store.
func (s *Store) Put(key history.Key, v history.StoredValue) error {
	plain, err := json.Marshal(v.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	enc, err := s.encryptData(plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt value: %w", err)
	}

	recordedAt := v.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err = s.db.Exec(`INSERT INTO input_defaults (profile_id, workflow_id, input_name, value, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(profile_id, workflow_id, input_name) DO UPDATE SET
			value = excluded.value,
			recorded_at = excluded.recorded_at`,
		key.ProfileID, key.WorkflowID, key.InputName, enc, recordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store default: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) encryptData(data []byte) ([]byte, error) {
	if s.encryptionKey == nil {
		return data, nil
	}
	encrypted, err := s.encryptionKey.Encrypt(data)
	if err != nil {
		return nil, err
	}
	return []byte(encrypted), nil
}

func (s *Store) decryptData(data []byte) ([]byte, error) {
	if s.encryptionKey == nil || len(data) == 0 {
		return data, nil
	}
	return s.encryptionKey.Decrypt(string(data))
}
