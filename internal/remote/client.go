package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mbellotti/scribble/internal/note"
)

// Client talks to the note server over JSON HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// Upsert pushes a note through the server's conflict-aware sync endpoint.
// If the server does not expose it, the raw upsert-by-id endpoint is used
// instead, mirroring the fallback the server-side procedure contract allows.
func (c *Client) Upsert(ctx context.Context, n note.Note) (note.Note, error) {
	var resp NotePayload
	err := c.post(ctx, "/api/notes/sync", ToPayload(n), &resp)
	if isNotFound(err) {
		err = c.post(ctx, "/api/notes", ToPayload(n), &resp)
	}
	if err != nil {
		return note.Note{}, err
	}
	return FromPayload(resp), nil
}

// The owner argument on Delete, QueryByOwner, and SearchFullText is part of
// the Store contract; this transport never sends it. The server derives the
// owner from the bearer token and scopes every operation to it, so a caller
// can only ever act on the token subject's notes regardless of the value
// passed here.

func (c *Client) Delete(ctx context.Context, id, owner string) error {
	return c.delete(ctx, "/api/notes/"+url.PathEscape(id))
}

func (c *Client) QueryByOwner(ctx context.Context, owner string) ([]note.Note, error) {
	var resp NoteListPayload
	if err := c.get(ctx, "/api/notes", &resp); err != nil {
		return nil, err
	}
	notes := make([]note.Note, len(resp.Notes))
	for i, p := range resp.Notes {
		notes[i] = FromPayload(p)
	}
	return notes, nil
}

func (c *Client) SearchFullText(ctx context.Context, query, owner string) ([]note.Note, error) {
	var resp NoteListPayload
	path := "/api/notes/search?q=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	notes := make([]note.Note, len(resp.Notes))
	for i, p := range resp.Notes {
		notes[i] = FromPayload(p)
	}
	return notes, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// Auth. Sign-in mechanics are outside the sync engine; the client only
// exposes them so the CLI can obtain the bearer token the identity
// provider reads back.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/api/auth/login", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/api/auth/register", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// statusError carries the HTTP status so callers can distinguish a missing
// endpoint from a failed request.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return e.message
	}
	return fmt.Sprintf("request failed with status %d", e.status)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

// HTTP helpers

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, nil)
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return &statusError{status: resp.StatusCode, message: errResp.Error}
		}
		return &statusError{status: resp.StatusCode}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
