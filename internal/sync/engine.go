// Package sync reconciles the local note collection with the remote
// authoritative store: guest-to-identity migration, a pending-id retry
// pass, and a bidirectional last-write-wins merge keyed on updated_at.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/identity"
	"github.com/mbellotti/scribble/internal/note"
	"github.com/mbellotti/scribble/internal/remote"
	"github.com/mbellotti/scribble/internal/storage"
)

// Kind classifies a reconciliation error so callers can decide visibility
// instead of the engine logging and moving on.
type Kind string

const (
	// KindMigratePush: a guest note failed to reach the remote store
	// after being re-owned. The note stays dirty and retries next pass.
	KindMigratePush Kind = "migrate-push"

	// KindRetryPush: a pending-queue note failed its fast-path push.
	KindRetryPush Kind = "retry-push"

	// KindConflictPush: a dirty, locally-newer note failed to push
	// during the merge. Local content is intact and still dirty.
	KindConflictPush Kind = "conflict-push"

	// KindPull: the full remote fetch failed; the merge was skipped and
	// the local collection is untouched.
	KindPull Kind = "pull"
)

// Error is one absorbed remote failure from a reconciliation pass.
type Error struct {
	Kind   Kind
	NoteID string
	Err    error
}

func (e Error) Error() string {
	if e.NoteID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.NoteID, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// Result summarizes one reconciliation pass. Errors holds every absorbed
// remote failure; local storage failures abort the pass and are returned
// from Reconcile directly.
type Result struct {
	Migrated int // guest notes re-owned to the identity
	Pushed   int // notes confirmed by the remote store this pass
	Pulled   int // remote notes inserted locally or overwriting local
	Adopted  int // clean notes that only took remote sort_order/synced_at
	Errors   []Error
}

// Engine orchestrates full reconciliation passes. All collaborators are
// injected; the engine holds no ambient state.
type Engine struct {
	store  *storage.Store
	remote remote.Store
	ident  identity.Provider
	log    *zap.Logger
	now    func() time.Time
}

func New(store *storage.Store, rs remote.Store, ident identity.Provider, log *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		remote: rs,
		ident:  ident,
		log:    log,
		now:    time.Now,
	}
}

// Reconcile runs one full pass: guest migration, pending retries, remote
// pull, and the last-write-wins merge. Signed out it is an immediate
// no-op. Only local storage failures make it return an error; remote
// failures are collected in the Result and resolved by the dirty flag on
// a later pass.
func (e *Engine) Reconcile(ctx context.Context) (*Result, error) {
	ident, err := e.ident.Current()
	if err != nil {
		e.log.Warn("identity lookup failed; skipping reconciliation", zap.Error(err))
		return &Result{}, nil
	}
	if ident == nil {
		return &Result{}, nil
	}

	res := &Result{}

	if err := e.migrateGuests(ctx, ident, res); err != nil {
		return nil, err
	}
	if err := e.retryPending(ctx, ident, res); err != nil {
		return nil, err
	}
	if err := e.mergeRemote(ctx, ident, res); err != nil {
		return nil, err
	}

	e.log.Info("reconciliation complete",
		zap.String("user_id", ident.UserID),
		zap.Int("migrated", res.Migrated),
		zap.Int("pushed", res.Pushed),
		zap.Int("pulled", res.Pulled),
		zap.Int("adopted", res.Adopted),
		zap.Int("errors", len(res.Errors)))

	return res, nil
}

// migrateGuests re-owns every guest note to the identity, persists the
// migration, then pushes each migrated note individually. A push failure
// leaves that note dirty and does not stop the others.
func (e *Engine) migrateGuests(ctx context.Context, ident *identity.Identity, res *Result) error {
	var migrated []note.Note
	_, err := e.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		for i := range all {
			if !all[i].IsGuest() {
				continue
			}
			all[i].UserID = ident.UserID
			all[i].GuestID = ""
			all[i].Dirty = true
			migrated = append(migrated, all[i])
		}
		return all, nil
	})
	if err != nil {
		return err
	}
	res.Migrated = len(migrated)

	for _, n := range migrated {
		confirmed, err := e.remote.Upsert(ctx, n)
		if err != nil {
			res.Errors = append(res.Errors, Error{Kind: KindMigratePush, NoteID: n.ID, Err: err})
			// A failed migration push is invisible to the merge (the note
			// does not exist remotely yet), so the retry queue is the only
			// path that ever pushes it.
			if qerr := e.store.EnqueuePending(n.ID); qerr != nil {
				return qerr
			}
			continue
		}
		if err := e.recordConfirmed(n.ID, confirmed); err != nil {
			return err
		}
		res.Pushed++
	}
	return nil
}

// retryPending pushes every dirty note whose id sits in the pending-sync
// queue. Ids that no longer resolve to a note, or resolve to a clean one,
// are dropped from the queue.
func (e *Engine) retryPending(ctx context.Context, ident *identity.Identity, res *Result) error {
	pending, err := e.store.PendingIDs()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	all, err := e.store.Load()
	if err != nil {
		return err
	}

	for _, id := range pending {
		i := note.FindByID(all, id)
		if i < 0 || !all[i].Dirty {
			if err := e.store.DequeuePending(id); err != nil {
				return err
			}
			continue
		}

		outgoing := all[i]
		outgoing.UserID = ident.UserID
		outgoing.GuestID = ""

		confirmed, err := e.remote.Upsert(ctx, outgoing)
		if err != nil {
			res.Errors = append(res.Errors, Error{Kind: KindRetryPush, NoteID: id, Err: err})
			continue
		}
		if err := e.recordConfirmed(id, confirmed); err != nil {
			return err
		}
		if err := e.store.DequeuePending(id); err != nil {
			return err
		}
		res.Pushed++
	}
	return nil
}

// mergeRemote pulls the identity's full remote set and applies the
// last-write-wins merge. The merge itself runs inside Mutate so a mutation
// committed mid-pass can never be dropped by the final persist. Conflict
// pushes happen after, each confirmation landing through its own Mutate.
func (e *Engine) mergeRemote(ctx context.Context, ident *identity.Identity, res *Result) error {
	remoteNotes, err := e.remote.QueryByOwner(ctx, ident.UserID)
	if err != nil {
		res.Errors = append(res.Errors, Error{Kind: KindPull, Err: err})
		return nil
	}

	var toPush []note.Note
	_, err = e.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		merged := merge(all, remoteNotes)
		res.Pulled += merged.pulled
		res.Adopted += merged.adopted
		toPush = toPush[:0]
		for _, i := range merged.pushes {
			toPush = append(toPush, merged.notes[i])
		}
		return merged.notes, nil
	})
	if err != nil {
		return err
	}

	for _, n := range toPush {
		confirmed, err := e.remote.Upsert(ctx, n)
		if err != nil {
			res.Errors = append(res.Errors, Error{Kind: KindConflictPush, NoteID: n.ID, Err: err})
			continue
		}
		if err := e.recordConfirmed(n.ID, confirmed); err != nil {
			return err
		}
		res.Pushed++
	}

	return nil
}

// recordConfirmed stores a successful push: the server's id replaces the
// local one if it changed, synced_at is stamped, and the note goes clean.
func (e *Engine) recordConfirmed(localID string, confirmed note.Note) error {
	_, err := e.store.Mutate(func(all []note.Note) ([]note.Note, error) {
		if i := note.FindByID(all, localID); i >= 0 {
			all[i].ID = confirmed.ID
			all[i].SyncedAt = confirmed.SyncedAt
			all[i].Dirty = false
		}
		return all, nil
	})
	return err
}

// mergeResult is the outcome of the pure merge step. pushes indexes notes
// that are locally newer and dirty; the engine performs the I/O.
type mergeResult struct {
	notes   []note.Note
	pushes  []int
	pulled  int
	adopted int
}

// merge applies the last-write-wins policy over whole records, using
// updated_at as the single ordering signal. Wall-clock comparison is not
// safe against clock skew across devices; that is an accepted limitation
// of a single-user personal store.
func merge(local, remoteNotes []note.Note) mergeResult {
	out := mergeResult{notes: append([]note.Note{}, local...)}

	for _, r := range remoteNotes {
		i := note.FindByID(out.notes, r.ID)
		if i < 0 {
			adopted := r
			if adopted.SortOrder == nil {
				adopted.SortOrder = note.IntPtr(len(out.notes))
			}
			adopted.Dirty = false
			out.notes = append(out.notes, adopted)
			out.pulled++
			continue
		}

		l := out.notes[i]
		switch {
		case r.UpdatedAt.After(l.UpdatedAt):
			// Remote strictly newer: remote wins wholesale.
			l.Title = r.Title
			l.Content = r.Content
			l.Color = r.Color
			if r.SortOrder != nil {
				l.SortOrder = r.SortOrder
			}
			l.UpdatedAt = r.UpdatedAt
			l.SyncedAt = r.SyncedAt
			l.UserID = r.UserID
			l.GuestID = ""
			l.Dirty = false
			out.notes[i] = l
			out.pulled++

		case l.UpdatedAt.After(r.UpdatedAt) && l.Dirty:
			// Local strictly newer with unpushed changes: local wins,
			// push back; the record itself stays as-is.
			out.pushes = append(out.pushes, i)

		default:
			// Equal timestamps, or local newer but already clean: local
			// fields stand, only remote ordering and sync bookkeeping
			// are adopted.
			if r.SortOrder != nil {
				l.SortOrder = r.SortOrder
			}
			l.SyncedAt = r.SyncedAt
			l.Dirty = false
			out.notes[i] = l
			out.adopted++
		}
	}

	return out
}
