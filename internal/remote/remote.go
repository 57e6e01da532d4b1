// Package remote defines the engine's view of the authoritative note
// store and provides the HTTP client implementation. Local mutations never
// depend on a remote call succeeding; every operation here is best-effort
// from the caller's point of view.
package remote

import (
	"context"
	"time"

	"github.com/mbellotti/scribble/internal/note"
)

// Store is the remote authoritative store, scoped by owning identity.
type Store interface {
	// Upsert inserts or updates by id, preferring the server's
	// conflict-aware last-write-wins procedure. It returns the server's
	// confirmed copy, including the permanent id when the pushed note
	// carried a temporary local one.
	Upsert(ctx context.Context, n note.Note) (note.Note, error)

	// Delete removes the note only if id and owner both match.
	Delete(ctx context.Context, id, owner string) error

	// QueryByOwner returns every note owned by owner, ordered by
	// updated_at descending.
	QueryByOwner(ctx context.Context, owner string) ([]note.Note, error)

	// SearchFullText returns a ranked result set for the query, scoped
	// to owner.
	SearchFullText(ctx context.Context, query, owner string) ([]note.Note, error)
}

// NotePayload is the wire form of a note. The dirty flag is local-only
// state and deliberately has no field here.
type NotePayload struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Color     string     `json:"color,omitempty"`
	SortOrder *int       `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

// NoteListPayload wraps list responses.
type NoteListPayload struct {
	Notes []NotePayload `json:"notes"`
}

// ToPayload converts a local note for the wire.
func ToPayload(n note.Note) NotePayload {
	return NotePayload{
		ID:        n.ID,
		OwnerID:   n.Owner(),
		Title:     n.Title,
		Content:   n.Content,
		Color:     n.Color,
		SortOrder: n.SortOrder,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		SyncedAt:  n.SyncedAt,
	}
}

// FromPayload converts a wire note to the local model. Remote copies are
// user-owned and clean by definition.
func FromPayload(p NotePayload) note.Note {
	return note.Note{
		ID:        p.ID,
		UserID:    p.OwnerID,
		Title:     p.Title,
		Content:   p.Content,
		Color:     p.Color,
		SortOrder: p.SortOrder,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		SyncedAt:  p.SyncedAt,
		Dirty:     false,
	}
}
