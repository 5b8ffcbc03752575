//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"epigonos/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveDynamicOperator(ctx context.Context, record model.DynamicOperatorRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeDynamicOperator(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO dynamic_operators (kind, name, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, name) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.Kind, record.Name, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetDynamicOperator(ctx context.Context, kind, name string) (model.DynamicOperatorRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.DynamicOperatorRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM dynamic_operators WHERE kind = ? AND name = ?
	`, kind, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DynamicOperatorRecord{}, false, nil
		}
		return model.DynamicOperatorRecord{}, false, err
	}

	record, err := DecodeDynamicOperator(payload)
	if err != nil {
		return model.DynamicOperatorRecord{}, false, fmt.Errorf("decode dynamic operator %s/%s: %w", kind, name, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListDynamicOperators(ctx context.Context, kind string) ([]model.DynamicOperatorRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM dynamic_operators WHERE kind = ? ORDER BY name
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.DynamicOperatorRecord, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeDynamicOperator(payload)
		if err != nil {
			return nil, fmt.Errorf("decode dynamic operator (%s): %w", kind, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteDynamicOperator(ctx context.Context, kind, name string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		DELETE FROM dynamic_operators WHERE kind = ? AND name = ?
	`, kind, name)
	return err
}

func (s *SQLiteStore) DeleteDynamicOperators(ctx context.Context, kind string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM dynamic_operators WHERE kind = ?`, kind)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dynamic_operators (
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (kind, name)
		);
	`)
	return err
}
