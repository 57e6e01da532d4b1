package storage

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mbellotti/scribble/internal/note"
)

const (
	notesKey   = "notes"
	guestIDKey = "guest_id"
	pendingKey = "sync_queue"
)

// Store persists the full note collection as one blob. There are no
// partial updates: every mutation is a load-modify-save of the whole
// collection, serialized through a single mutex so two callers can never
// interleave stale snapshots.
type Store struct {
	mu  sync.Mutex
	kv  KV
	now func() time.Time
}

func New(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Load returns the full local collection. A missing blob is an empty
// collection, not an error.
func (s *Store) Load() ([]note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save persists the full collection. A write failure propagates as a
// *note.StorageError; it is the only signal that an optimistic mutation
// did not durably land.
func (s *Store) Save(notes []note.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(notes)
}

// Mutate runs fn over the loaded collection and persists whatever fn
// returns, all under the store lock. This is the single serialization
// point for every local mutation.
func (s *Store) Mutate(fn func(notes []note.Note) ([]note.Note, error)) ([]note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.load()
	if err != nil {
		return nil, err
	}

	updated, err := fn(notes)
	if err != nil {
		return nil, err
	}

	if err := s.save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) load() ([]note.Note, error) {
	raw, ok, err := s.kv.Get(notesKey)
	if err != nil {
		return nil, &note.StorageError{Op: "read", Err: err}
	}
	if !ok || raw == "" {
		return []note.Note{}, nil
	}

	var notes []note.Note
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return nil, &note.StorageError{Op: "decode", Err: err}
	}
	return notes, nil
}

func (s *Store) save(notes []note.Note) error {
	if notes == nil {
		notes = []note.Note{}
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return &note.StorageError{Op: "encode", Err: err}
	}
	if err := s.kv.Set(notesKey, string(raw)); err != nil {
		return &note.StorageError{Op: "write", Err: err}
	}
	return nil
}

// GuestID returns the device's anonymous identifier, generating and
// persisting one on first use. It is stable across restarts.
func (s *Store) GuestID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.kv.Get(guestIDKey)
	if err != nil {
		return "", &note.StorageError{Op: "read", Err: err}
	}
	if ok && id != "" {
		return id, nil
	}

	id = note.NewGuestID(s.now())
	if err := s.kv.Set(guestIDKey, id); err != nil {
		return "", &note.StorageError{Op: "write", Err: err}
	}
	return id, nil
}

// EnqueuePending records a note id for the next reconciliation's fast-path
// retry. Duplicate ids are dropped.
func (s *Store) EnqueuePending(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.pending()
	if err != nil {
		return err
	}
	for _, q := range queue {
		if q == id {
			return nil
		}
	}
	return s.savePending(append(queue, id))
}

// DequeuePending removes an id after a confirmed push.
func (s *Store) DequeuePending(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.pending()
	if err != nil {
		return err
	}
	filtered := queue[:0]
	for _, q := range queue {
		if q != id {
			filtered = append(filtered, q)
		}
	}
	return s.savePending(filtered)
}

// PendingIDs lists the ids waiting for a retry push.
func (s *Store) PendingIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending()
}

func (s *Store) pending() ([]string, error) {
	raw, ok, err := s.kv.Get(pendingKey)
	if err != nil {
		return nil, &note.StorageError{Op: "read", Err: err}
	}
	if !ok || raw == "" {
		return []string{}, nil
	}
	var queue []string
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return nil, &note.StorageError{Op: "decode", Err: err}
	}
	return queue, nil
}

func (s *Store) savePending(queue []string) error {
	raw, err := json.Marshal(queue)
	if err != nil {
		return &note.StorageError{Op: "encode", Err: err}
	}
	if err := s.kv.Set(pendingKey, string(raw)); err != nil {
		return &note.StorageError{Op: "write", Err: err}
	}
	return nil
}

// Close releases the underlying KV.
func (s *Store) Close() error {
	return s.kv.Close()
}
