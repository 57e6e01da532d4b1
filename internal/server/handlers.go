package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbellotti/scribble/internal/remote"
)

// Health check

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Auth handlers. These mint the bearer tokens the client's identity
// provider reads; the sign-in UX itself lives outside this repo.

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password required", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil || !s.store.ValidatePassword(user, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.Active {
		jsonError(w, "user is disabled", http.StatusForbidden)
		return
	}

	token, expiresAt, err := s.jwt.Generate(user.ID, user.Username)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, remote.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		UserID:    user.ID,
		Username:  user.Username,
	}, http.StatusOK)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	existing, _ := s.store.GetUserByUsername(r.Context(), req.Username)
	if existing != nil {
		jsonError(w, "username already exists", http.StatusConflict)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		jsonError(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := s.jwt.Generate(user.ID, user.Username)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, remote.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		UserID:    user.ID,
		Username:  user.Username,
	}, http.StatusCreated)
}

// Note handlers

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	notes, err := s.store.ListNotesByOwner(r.Context(), user.ID)
	if err != nil {
		jsonError(w, "failed to list notes", http.StatusInternalServerError)
		return
	}

	response := remote.NoteListPayload{Notes: make([]remote.NotePayload, len(notes))}
	for i, n := range notes {
		response.Notes[i] = remote.ToPayload(n)
	}
	jsonResponse(w, response, http.StatusOK)
}

// syncNoteHandler is the conflict-aware upsert: the stored row only
// changes when the pushed copy is strictly newer. The response is the
// server's copy either way, so a losing push still learns the winner.
func (s *Server) syncNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var req remote.NotePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	n, err := s.store.SyncNote(r.Context(), user.ID, remote.FromPayload(req))
	if err != nil {
		jsonError(w, "failed to sync note", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, remote.ToPayload(n), http.StatusOK)
}

func (s *Server) upsertNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var req remote.NotePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	n, err := s.store.UpsertNote(r.Context(), user.ID, remote.FromPayload(req))
	if err != nil {
		jsonError(w, "failed to save note", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, remote.ToPayload(n), http.StatusOK)
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")

	if err := s.store.DeleteNote(r.Context(), noteID, user.ID); err != nil {
		jsonError(w, "failed to delete note", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchNotesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, "query required", http.StatusBadRequest)
		return
	}

	notes, err := s.store.SearchNotes(r.Context(), query, user.ID)
	if err != nil {
		jsonError(w, "failed to search notes", http.StatusInternalServerError)
		return
	}

	response := remote.NoteListPayload{Notes: make([]remote.NotePayload, len(notes))}
	for i, n := range notes {
		response.Notes[i] = remote.ToPayload(n)
	}
	jsonResponse(w, response, http.StatusOK)
}
