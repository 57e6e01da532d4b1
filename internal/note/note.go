package note

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks ids assigned on-device before the server has
// confirmed the note and issued a permanent id.
const LocalIDPrefix = "local_"

// Note is the single entity the engine works with. A note is owned either
// by an authenticated user or by the device's anonymous guest identity,
// never both. Dirty is local-only bookkeeping and never leaves the device.
type Note struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	GuestID   string     `json:"guest_id,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Color     string     `json:"color,omitempty"`
	SortOrder *int       `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
	Dirty     bool       `json:"is_dirty"`
}

// NewLocalID returns a temporary device-scoped id. It stays on the note
// until a successful push, when the server-assigned id replaces it.
func NewLocalID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", LocalIDPrefix, now.UnixMilli(), uuid.NewString()[:8])
}

// NewGuestID returns a fresh anonymous per-device identifier.
func NewGuestID(now time.Time) string {
	return fmt.Sprintf("guest_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// IsLocalID reports whether id was assigned on-device and is still
// awaiting server confirmation.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Owner returns whichever identity owns the note.
func (n Note) Owner() string {
	if n.UserID != "" {
		return n.UserID
	}
	return n.GuestID
}

// IsGuest reports whether the note is still owned by an anonymous device
// identity rather than a signed-in user.
func (n Note) IsGuest() bool {
	return n.UserID == "" && n.GuestID != ""
}

// Validate checks the ownership-exclusivity invariant: exactly one of
// UserID and GuestID is set.
func (n Note) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("note has no id")
	}
	if n.UserID != "" && n.GuestID != "" {
		return fmt.Errorf("note %s owned by both user and guest", n.ID)
	}
	if n.UserID == "" && n.GuestID == "" {
		return fmt.Errorf("note %s has no owner", n.ID)
	}
	return nil
}

// MatchesQuery reports a case-insensitive substring match against the
// title or content.
func (n Note) MatchesQuery(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

// TitleMatches reports a case-insensitive substring match against the
// title only. Search ranks title matches ahead of content-only matches.
func (n Note) TitleMatches(query string) bool {
	return strings.Contains(strings.ToLower(n.Title), strings.ToLower(query))
}

// MaxSortOrder returns the largest sort_order in the collection, or 0 when
// every note is unordered.
func MaxSortOrder(notes []Note) int {
	max := 0
	for _, n := range notes {
		if n.SortOrder != nil && *n.SortOrder > max {
			max = *n.SortOrder
		}
	}
	return max
}

// FindByID returns the index of the note with the given id, or -1.
func FindByID(notes []Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}

// IntPtr is a convenience for building sort_order values.
func IntPtr(v int) *int { return &v }
