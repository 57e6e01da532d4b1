package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// KV is the device's raw persistence surface: string-keyed get/set/remove
// of one serialized blob per logical key. No partial-field access.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// SQLiteKV stores blobs in a single key/value table. Each Set replaces the
// whole value for a key in one statement, so individual writes are atomic.
type SQLiteKV struct {
	conn *sql.DB
}

func NewSQLiteKV(path string) (*SQLiteKV, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	kv := &SQLiteKV{conn: conn}
	if err := kv.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	return kv, nil
}

func (kv *SQLiteKV) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := kv.conn.Exec(schema)
	return err
}

func (kv *SQLiteKV) Get(key string) (string, bool, error) {
	var value string
	err := kv.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

func (kv *SQLiteKV) Set(key, value string) error {
	_, err := kv.conn.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (kv *SQLiteKV) Remove(key string) error {
	_, err := kv.conn.Exec(`DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

func (kv *SQLiteKV) Close() error {
	return kv.conn.Close()
}

// MemoryKV is an in-memory KV for tests.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string]string
	FailOn map[string]error // key -> error to return from Set
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (kv *MemoryKV) Get(key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.data[key]
	return v, ok, nil
}

func (kv *MemoryKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if err, ok := kv.FailOn[key]; ok {
		return err
	}
	kv.data[key] = value
	return nil
}

func (kv *MemoryKV) Remove(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}

func (kv *MemoryKV) Close() error { return nil }
