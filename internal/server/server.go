// Package server exposes the authoritative note store over JSON HTTP:
// ownership-scoped queries, a conflict-aware upsert, a raw upsert
// fallback, ownership-enforced deletes, and ranked full-text search.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mbellotti/scribble/internal/auth"
	"github.com/mbellotti/scribble/internal/note"
	"github.com/mbellotti/scribble/internal/server/store"
)

// Store is what the handlers need from the backing database. The postgres
// implementation lives in the store package; tests substitute a fake.
type Store interface {
	CreateUser(ctx context.Context, username, password string) (*store.User, error)
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	ValidatePassword(u *store.User, password string) bool

	SyncNote(ctx context.Context, ownerID string, n note.Note) (note.Note, error)
	UpsertNote(ctx context.Context, ownerID string, n note.Note) (note.Note, error)
	DeleteNote(ctx context.Context, id, ownerID string) error
	ListNotesByOwner(ctx context.Context, ownerID string) ([]note.Note, error)
	SearchNotes(ctx context.Context, query, ownerID string) ([]note.Note, error)
}

type Server struct {
	store  Store
	jwt    *auth.JWTManager
	log    *zap.Logger
	router *chi.Mux
}

type contextKey string

const userContextKey contextKey = "user"

func New(st Store, jwtManager *auth.JWTManager, log *zap.Logger) *Server {
	s := &Server{
		store:  st,
		jwt:    jwtManager,
		log:    log,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(s.requestLogger)

	s.router.Get("/health", s.healthHandler)

	authLimiter := NewAuthRateLimiter()
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/login", s.loginHandler)
		r.Post("/register", s.registerHandler)
	})

	apiLimiter := NewAPIRateLimiter()
	s.router.Route("/api/notes", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)
		r.Use(s.authMiddleware)
		r.Get("/", s.listNotesHandler)
		r.Get("/search", s.searchNotesHandler)
		r.Post("/", s.upsertNoteHandler)
		r.Post("/sync", s.syncNoteHandler)
		r.Delete("/{id}", s.deleteNoteHandler)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			jsonError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			jsonError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := s.jwt.Validate(parts[1])
		if err != nil {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := s.store.GetUserByID(r.Context(), claims.Subject)
		if err != nil || user == nil || !user.Active {
			jsonError(w, "user not found or inactive", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserFromContext(r *http.Request) *store.User {
	user, _ := r.Context().Value(userContextKey).(*store.User)
	return user
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}
