package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbellotti/scribble/internal/note"
)

func sample(id string) note.Note {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return note.Note{
		ID:        id,
		GuestID:   "guest-1",
		Title:     "title " + id,
		Content:   "content " + id,
		SortOrder: note.IntPtr(0),
		CreatedAt: created,
		UpdatedAt: created,
		Dirty:     true,
	}
}

func TestLoadEmptyStore(t *testing.T) {
	s := New(NewMemoryKV())

	notes, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(NewMemoryKV())

	in := []note.Note{sample("a"), sample("b")}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// Saving what Load returned must not change the persisted blob.
func TestSaveLoadIdempotent(t *testing.T) {
	kv := NewMemoryKV()
	s := New(kv)

	require.NoError(t, s.Save([]note.Note{sample("a")}))
	first, _, err := kv.Get("notes")
	require.NoError(t, err)

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, s.Save(loaded))

	second, _, err := kv.Get("notes")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSaveNilNormalizesToEmpty(t *testing.T) {
	s := New(NewMemoryKV())
	require.NoError(t, s.Save(nil))

	notes, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestSaveWriteFailureIsStorageError(t *testing.T) {
	kv := NewMemoryKV()
	kv.FailOn = map[string]error{"notes": errors.New("disk full")}
	s := New(kv)

	err := s.Save([]note.Note{sample("a")})
	require.Error(t, err)

	var se *note.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "write", se.Op)
}

func TestLoadDecodeFailureIsStorageError(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set("notes", "{not json"))
	s := New(kv)

	_, err := s.Load()
	var se *note.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "decode", se.Op)
}

func TestMutateAppliesAndPersists(t *testing.T) {
	s := New(NewMemoryKV())
	require.NoError(t, s.Save([]note.Note{sample("a")}))

	updated, err := s.Mutate(func(all []note.Note) ([]note.Note, error) {
		all[0].Title = "renamed"
		return append(all, sample("b")), nil
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "renamed", out[0].Title)
	assert.Equal(t, "b", out[1].ID)
}

func TestMutateCallbackErrorAbortsSave(t *testing.T) {
	kv := NewMemoryKV()
	s := New(kv)
	require.NoError(t, s.Save([]note.Note{sample("a")}))
	before, _, _ := kv.Get("notes")

	boom := errors.New("no such note")
	_, err := s.Mutate(func(all []note.Note) ([]note.Note, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	after, _, _ := kv.Get("notes")
	assert.Equal(t, before, after, "failed mutation leaves the blob untouched")
}

func TestMutateSerializesConcurrentWriters(t *testing.T) {
	s := New(NewMemoryKV())
	require.NoError(t, s.Save([]note.Note{}))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Mutate(func(all []note.Note) ([]note.Note, error) {
				n := sample("n")
				n.ID = note.NewLocalID(time.Now())
				n.SortOrder = note.IntPtr(note.MaxSortOrder(all) + 1)
				return append(all, n), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	out, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, out, writers, "no mutation may observe a stale snapshot")
}

func TestGuestIDStableAcrossCalls(t *testing.T) {
	kv := NewMemoryKV()
	s := New(kv)

	first, err := s.GuestID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "guest_"))

	second, err := s.GuestID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh store over the same KV sees the same id.
	again, err := New(kv).GuestID()
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestPendingQueueDedupAndRemove(t *testing.T) {
	s := New(NewMemoryKV())

	require.NoError(t, s.EnqueuePending("a"))
	require.NoError(t, s.EnqueuePending("b"))
	require.NoError(t, s.EnqueuePending("a"))

	ids, err := s.PendingIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, s.DequeuePending("a"))
	ids, err = s.PendingIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	require.NoError(t, s.DequeuePending("missing"))
	ids, err = s.PendingIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestSQLiteKVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", "v1"))
	require.NoError(t, kv.Set("k", "v2"))

	v, ok, err := kv.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, kv.Remove("k"))
	_, ok, err = kv.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}
