// Package store is the server-side authoritative note store on
// PostgreSQL. The conflict check lives in SQL: an upsert only replaces a
// row the incoming copy is strictly newer than.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbellotti/scribble/internal/note"
)

//go:embed migrations.sql
var migrations embed.FS

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) connString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type Store struct {
	db *sql.DB
}

func New(cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	_, err = s.db.Exec(string(schema))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// User operations

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	Active       bool
}

func (s *Store) CreateUser(ctx context.Context, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		ID:       uuid.NewString(),
		Username: username,
		Active:   true,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, u.ID, username, string(hash)).Scan(&u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, active
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, active
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Store) ValidatePassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Note operations

// SyncNote is the conflict-aware upsert: the row is only replaced when the
// incoming copy is strictly newer, so a stale push can never clobber a
// fresher server copy. Temporary device-assigned ids are replaced with a
// permanent one before insert. Returns the stored row either way.
func (s *Store) SyncNote(ctx context.Context, ownerID string, n note.Note) (note.Note, error) {
	id := n.ID
	if id == "" || note.IsLocalID(id) {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, color, sort_order, created_at, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			color = excluded.color,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at,
			synced_at = now()
		WHERE notes.owner_id = excluded.owner_id
		  AND notes.updated_at < excluded.updated_at
	`, id, ownerID, n.Title, n.Content, n.Color, n.SortOrder, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return note.Note{}, fmt.Errorf("failed to sync note: %w", err)
	}

	return s.getNote(ctx, id, ownerID)
}

// UpsertNote is the raw fallback: insert-or-update by id with no timestamp
// check, scoped to the owner.
func (s *Store) UpsertNote(ctx context.Context, ownerID string, n note.Note) (note.Note, error) {
	id := n.ID
	if id == "" || note.IsLocalID(id) {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, color, sort_order, created_at, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			color = excluded.color,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at,
			synced_at = now()
		WHERE notes.owner_id = excluded.owner_id
	`, id, ownerID, n.Title, n.Content, n.Color, n.SortOrder, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return note.Note{}, fmt.Errorf("failed to upsert note: %w", err)
	}

	return s.getNote(ctx, id, ownerID)
}

// DeleteNote removes the note only when both id and owner match.
func (s *Store) DeleteNote(ctx context.Context, id, ownerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// ListNotesByOwner returns the owner's full note set, newest change first.
func (s *Store) ListNotesByOwner(ctx context.Context, ownerID string) ([]note.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, content, COALESCE(color, ''), sort_order, created_at, updated_at, synced_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// SearchNotes runs ranked full-text search over title and content, scoped
// to the owner.
func (s *Store) SearchNotes(ctx context.Context, query, ownerID string) ([]note.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, content, COALESCE(color, ''), sort_order, created_at, updated_at, synced_at
		FROM notes
		WHERE owner_id = $1
		  AND to_tsvector('english', title || ' ' || content) @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(to_tsvector('english', title || ' ' || content), plainto_tsquery('english', $2)) DESC,
		         updated_at DESC
	`, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

func (s *Store) getNote(ctx context.Context, id, ownerID string) (note.Note, error) {
	var n note.Note
	var sortOrder sql.NullInt64
	var syncedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, content, COALESCE(color, ''), sort_order, created_at, updated_at, synced_at
		FROM notes WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Color, &sortOrder, &n.CreatedAt, &n.UpdatedAt, &syncedAt)
	if err != nil {
		return note.Note{}, fmt.Errorf("failed to get note: %w", err)
	}
	if sortOrder.Valid {
		n.SortOrder = note.IntPtr(int(sortOrder.Int64))
	}
	if syncedAt.Valid {
		t := syncedAt.Time
		n.SyncedAt = &t
	}
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]note.Note, error) {
	var notes []note.Note
	for rows.Next() {
		var n note.Note
		var sortOrder sql.NullInt64
		var syncedAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Color, &sortOrder, &n.CreatedAt, &n.UpdatedAt, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if sortOrder.Valid {
			n.SortOrder = note.IntPtr(int(sortOrder.Int64))
		}
		if syncedAt.Valid {
			t := syncedAt.Time
			n.SyncedAt = &t
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
