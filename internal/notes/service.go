// Package notes implements the mutation and search services: optimistic
// local writes against the blob store, with best-effort pushes to the
// remote store when an identity is present.
package notes

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/identity"
	"github.com/mbellotti/scribble/internal/note"
	"github.com/mbellotti/scribble/internal/remote"
	"github.com/mbellotti/scribble/internal/storage"
)

// untitledPlaceholder is used when a note is created with no title and no
// content at all.
const untitledPlaceholder = "Untitled Note"

// MutationState tracks an optimistic mutation. The local collection only
// ever retains committed mutations; a rolled-back mutation leaves the
// persisted collection exactly as it was.
type MutationState int

const (
	MutationPending MutationState = iota
	MutationCommitted
	MutationRolledBack
)

func (s MutationState) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationCommitted:
		return "committed"
	case MutationRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Mutation is the outcome of an optimistic write. Note is only meaningful
// when State is MutationCommitted.
type Mutation struct {
	State MutationState
	Note  note.Note
}

// Update lists the fields an update may replace. Nil means "keep".
type Update struct {
	Title   *string
	Content *string
	Color   *string
}

// Service performs create/update/delete/reorder against the local store.
// Every operation commits locally first; the remote push that follows is
// best-effort and never fails the operation itself.
type Service struct {
	store  *storage.Store
	remote remote.Store
	ident  identity.Provider
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store *storage.Store, rs remote.Store, ident identity.Provider, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		remote: rs,
		ident:  ident,
		log:    log,
		now:    time.Now,
	}
}

// Create appends a new note to the collection. New notes take
// sort_order = max(existing)+1, placing them last under ascending order.
// When signed in the note is pushed immediately; a push failure leaves it
// dirty for the next reconciliation and does not fail the create.
func (s *Service) Create(ctx context.Context, title, content, color string) (*Mutation, error) {
	ident := s.currentIdentity()

	if title == "" && content == "" {
		title = untitledPlaceholder
	}

	var guestID string
	if ident == nil {
		id, err := s.store.GuestID()
		if err != nil {
			return &Mutation{State: MutationRolledBack}, err
		}
		guestID = id
	}

	now := s.now()
	created := note.Note{
		ID:        note.NewLocalID(now),
		Title:     title,
		Content:   content,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
		Dirty:     ident == nil,
	}
	if ident != nil {
		created.UserID = ident.UserID
	} else {
		created.GuestID = guestID
	}

	_, err := s.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		created.SortOrder = note.IntPtr(note.MaxSortOrder(all) + 1)
		return append(all, created), nil
	})
	if err != nil {
		return &Mutation{State: MutationRolledBack}, err
	}

	if ident != nil {
		created = s.push(ctx, ident, created)
	}

	return &Mutation{State: MutationCommitted, Note: created}, nil
}

// UpdateNote replaces only the provided fields and stamps updated_at. An
// unknown id is a hard error. Signed out, the id is enqueued for the next
// reconciliation's retry pass instead of being pushed.
func (s *Service) UpdateNote(ctx context.Context, id string, upd Update) (*Mutation, error) {
	ident := s.currentIdentity()

	var updated note.Note
	_, err := s.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		i := note.FindByID(all, id)
		if i < 0 {
			return nil, note.ErrNotFound
		}
		n := all[i]
		if upd.Title != nil {
			n.Title = *upd.Title
		}
		if upd.Content != nil {
			n.Content = *upd.Content
		}
		if upd.Color != nil {
			n.Color = *upd.Color
		}
		n.UpdatedAt = s.now()
		n.Dirty = ident == nil || n.Dirty
		all[i] = n
		updated = n
		return all, nil
	})
	if err != nil {
		return &Mutation{State: MutationRolledBack}, err
	}

	if ident != nil {
		updated = s.push(ctx, ident, updated)
	} else {
		if err := s.store.EnqueuePending(id); err != nil {
			s.log.Warn("failed to enqueue pending sync", zap.String("note_id", id), zap.Error(err))
		}
	}

	return &Mutation{State: MutationCommitted, Note: updated}, nil
}

// Delete removes the note locally no matter what. The remote delete that
// follows is best-effort: if it never lands, the note may resurface on a
// later pull. Deleting an id that is not present is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	var deleted *note.Note
	_, err := s.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		filtered := all[:0]
		for _, n := range all {
			if n.ID == id {
				d := n
				deleted = &d
				continue
			}
			filtered = append(filtered, n)
		}
		return filtered, nil
	})
	if err != nil {
		return err
	}

	ident := s.currentIdentity()
	if ident != nil && deleted != nil {
		if err := s.remote.Delete(ctx, id, ident.UserID); err != nil {
			s.log.Warn("remote delete failed; note may resurface on a later pull",
				zap.String("note_id", id), zap.Error(err))
		}
	}
	return nil
}

// Reorder assigns sort_order = index for every id in order and stamps
// updated_at on each. When signed in every note is pushed individually;
// one push failing does not stop the rest, so a batch reorder has no
// atomicity against partial remote failure.
func (s *Service) Reorder(ctx context.Context, ids []string) ([]note.Note, error) {
	ident := s.currentIdentity()
	now := s.now()

	var touched []note.Note
	all, err := s.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		touched = touched[:0]
		for i, id := range ids {
			j := note.FindByID(all, id)
			if j < 0 {
				return nil, note.ErrNotFound
			}
			all[j].SortOrder = note.IntPtr(i)
			all[j].UpdatedAt = now
			all[j].Dirty = ident == nil || all[j].Dirty
			touched = append(touched, all[j])
		}
		return all, nil
	})
	if err != nil {
		return nil, err
	}

	if ident != nil {
		for _, n := range touched {
			s.push(ctx, ident, n)
		}
	}
	return all, nil
}

// push sends a note to the remote store and records the outcome locally.
// On success the server's confirmed id and synced_at replace the local
// bookkeeping and the note is marked clean. On failure the note is marked
// dirty and enqueued for retry; the error never reaches the caller.
func (s *Service) push(ctx context.Context, ident *identity.Identity, n note.Note) note.Note {
	outgoing := n
	outgoing.UserID = ident.UserID
	outgoing.GuestID = ""

	confirmed, err := s.remote.Upsert(ctx, outgoing)
	if err != nil {
		s.log.Warn("remote push failed; note left dirty",
			zap.String("note_id", n.ID), zap.Error(err))
		s.markDirty(n.ID)
		if qerr := s.store.EnqueuePending(n.ID); qerr != nil {
			s.log.Warn("failed to enqueue pending sync", zap.String("note_id", n.ID), zap.Error(qerr))
		}
		n.Dirty = true
		return n
	}

	result := n
	_, err = s.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		i := note.FindByID(all, n.ID)
		if i < 0 {
			return all, nil
		}
		all[i].ID = confirmed.ID
		all[i].SyncedAt = confirmed.SyncedAt
		all[i].Dirty = false
		result = all[i]
		return all, nil
	})
	if err != nil {
		s.log.Warn("failed to record confirmed push", zap.String("note_id", n.ID), zap.Error(err))
		return n
	}
	if qerr := s.store.DequeuePending(n.ID); qerr != nil {
		s.log.Warn("failed to dequeue pending sync", zap.String("note_id", n.ID), zap.Error(qerr))
	}
	return result
}

func (s *Service) markDirty(id string) {
	_, err := s.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		if i := note.FindByID(all, id); i >= 0 {
			all[i].Dirty = true
		}
		return all, nil
	})
	if err != nil {
		s.log.Warn("failed to mark note dirty", zap.String("note_id", id), zap.Error(err))
	}
}

// currentIdentity treats a provider failure as signed out: the absence of
// an identity routes mutations to local-only behavior, it is not an error.
func (s *Service) currentIdentity() *identity.Identity {
	ident, err := s.ident.Current()
	if err != nil {
		s.log.Warn("identity lookup failed; treating as signed out", zap.Error(err))
		return nil
	}
	return ident
}
