package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/identity"
	"github.com/mbellotti/scribble/internal/note"
	"github.com/mbellotti/scribble/internal/storage"
)

func st(hour int) time.Time {
	return time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC)
}

func TestSearchEmptyQueryReturnsAllInStoredOrder(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	require.NoError(t, store.Save([]note.Note{
		{ID: "b", GuestID: "g", Title: "second", UpdatedAt: st(2)},
		{ID: "a", GuestID: "g", Title: "first", UpdatedAt: st(1)},
	}))

	out, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID, "empty query preserves stored order")
	assert.Equal(t, "a", out[1].ID)
}

func TestSearchLocalSubstringMatch(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	require.NoError(t, store.Save([]note.Note{
		{ID: "a", GuestID: "g", Title: "Grocery List", Content: "milk", UpdatedAt: st(1)},
		{ID: "b", GuestID: "g", Title: "Work", Content: "buy groceries later", UpdatedAt: st(2)},
		{ID: "c", GuestID: "g", Title: "Unrelated", Content: "nothing here", UpdatedAt: st(3)},
	}))

	out, err := svc.Search(context.Background(), "GROCER")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID, "title matches rank ahead of content-only matches")
	assert.Equal(t, "b", out[1].ID)
}

func TestSearchNewestFirstWithinRankGroup(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	require.NoError(t, store.Save([]note.Note{
		{ID: "old", GuestID: "g", Title: "meeting notes", UpdatedAt: st(1)},
		{ID: "new", GuestID: "g", Title: "meeting agenda", UpdatedAt: st(5)},
	}))

	out, err := svc.Search(context.Background(), "meeting")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].ID)
	assert.Equal(t, "old", out[1].ID)
}

func TestSearchSignedInMergesRemoteHits(t *testing.T) {
	svc, store, rs := newTestService(t, user1())
	require.NoError(t, store.Save([]note.Note{
		{ID: "a", UserID: "user-1", Title: "travel plans", Content: "local copy", UpdatedAt: st(1)},
		{ID: "b", UserID: "user-1", Title: "travel diary", UpdatedAt: st(2)},
	}))
	// Remote has a fresher copy of "a" and a note the device never saw.
	rs.notes["a"] = note.Note{ID: "a", UserID: "user-1", Title: "travel plans", Content: "remote copy", UpdatedAt: st(4)}
	rs.notes["c"] = note.Note{ID: "c", UserID: "user-1", Title: "travel bookings", UpdatedAt: st(3)}

	out, err := svc.Search(context.Background(), "travel")
	require.NoError(t, err)
	require.Len(t, out, 3)

	byID := make(map[string]note.Note)
	for _, n := range out {
		byID[n.ID] = n
	}
	assert.Equal(t, "remote copy", byID["a"].Content, "remote copy wins for overlapping ids")
	assert.Contains(t, byID, "c", "remote-only hits are included")
	assert.Contains(t, byID, "b", "local-only hits survive the merge")
}

func TestSearchRemoteFailureFallsBackToLocal(t *testing.T) {
	svc, store, rs := newTestService(t, user1())
	rs.searchErr = errors.New("timeout")
	require.NoError(t, store.Save([]note.Note{
		{ID: "a", UserID: "user-1", Title: "todo", UpdatedAt: st(1)},
	}))

	out, err := svc.Search(context.Background(), "todo")
	require.NoError(t, err, "remote search failure is absorbed")
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestSearchStorageFailureSurfaces(t *testing.T) {
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set("notes", "{corrupt"))
	svc := NewService(storage.New(kv), newFakeRemote(), &identity.Static{}, zap.NewNop())

	_, err := svc.Search(context.Background(), "anything")
	var se *note.StorageError
	require.ErrorAs(t, err, &se)
}
