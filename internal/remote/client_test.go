package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbellotti/scribble/internal/note"
)

func testNote() note.Note {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return note.Note{
		ID:        "local_1_abcd",
		UserID:    "user-1",
		Title:     "Groceries",
		Content:   "milk",
		SortOrder: note.IntPtr(1),
		CreatedAt: created,
		UpdatedAt: created,
		Dirty:     true,
	}
}

func TestUpsertUsesSyncEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		var p NotePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "user-1", p.OwnerID)

		p.ID = "srv-uuid-1"
		now := time.Now().UTC()
		p.SyncedAt = &now
		json.NewEncoder(w).Encode(p)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("tok")

	confirmed, err := c.Upsert(context.Background(), testNote())
	require.NoError(t, err)
	assert.Equal(t, "/api/notes/sync", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "srv-uuid-1", confirmed.ID)
	assert.False(t, confirmed.Dirty, "wire notes come back clean")
	require.NotNil(t, confirmed.SyncedAt)
}

func TestUpsertFallsBackOnMissingSyncEndpoint(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/notes/sync" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
			return
		}
		var p NotePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		json.NewEncoder(w).Encode(p)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	confirmed, err := c.Upsert(context.Background(), testNote())
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/notes/sync", "/api/notes"}, paths)
	assert.Equal(t, "local_1_abcd", confirmed.ID)
}

func TestUpsertSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "database unavailable"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upsert(context.Background(), testNote())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestDeleteTargetsNoteByID(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Delete(context.Background(), "abc123", "user-1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/notes/abc123", gotPath)
}

func TestQueryByOwner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notes", r.URL.Path)
		json.NewEncoder(w).Encode(NoteListPayload{Notes: []NotePayload{
			{ID: "a", OwnerID: "user-1", Title: "one"},
			{ID: "b", OwnerID: "user-1", Title: "two"},
		}})
	}))
	defer srv.Close()

	notes, err := NewClient(srv.URL).QueryByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "user-1", notes[0].UserID)
	assert.False(t, notes[0].Dirty)
}

func TestSearchFullTextEscapesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		json.NewEncoder(w).Encode(NoteListPayload{})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SearchFullText(context.Background(), "milk & eggs", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "milk & eggs", gotQuery)
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		json.NewEncoder(w).Encode(LoginResponse{Token: "tok-1", UserID: "user-1", Username: "alice"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, "tok-1", c.token, "subsequent requests carry the session token")
}

func TestPayloadRoundTripDropsLocalState(t *testing.T) {
	n := testNote()
	n.GuestID = ""

	back := FromPayload(ToPayload(n))
	assert.Equal(t, n.ID, back.ID)
	assert.Equal(t, n.UserID, back.UserID)
	assert.False(t, back.Dirty, "dirty never crosses the wire")
}

func TestToPayloadUsesGuestOwnerWhenNoUser(t *testing.T) {
	n := note.Note{ID: "a", GuestID: "guest-1"}
	p := ToPayload(n)
	assert.Equal(t, "guest-1", p.OwnerID)
}
