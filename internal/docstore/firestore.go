// Package docstore reads user profile documents for the session store, from
// Firestore over REST or from a Postgres table of JSON documents.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sessionkit/cli/internal/session"
)

// TokenSource supplies the bearer token for document reads.
// identity.Client satisfies it.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// Firestore reads documents from the Firestore REST API.
type Firestore struct {
	baseURL   string
	projectID string
	database  string
	tokens    TokenSource
	http      *http.Client
}

// FirestoreOption customises a Firestore store.
type FirestoreOption func(*Firestore)

// WithDatabase selects a named database instead of (default).
func WithDatabase(name string) FirestoreOption { return func(f *Firestore) { f.database = name } }

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) FirestoreOption { return func(f *Firestore) { f.http = h } }

// NewFirestore returns a store for projectID. A nil tokens source sends
// unauthenticated requests, which the emulator accepts.
func NewFirestore(baseURL, projectID string, tokens TokenSource, opts ...FirestoreOption) *Firestore {
	f := &Firestore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		database:  "(default)",
		tokens:    tokens,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StatusError is a non-404 error response from Firestore.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("firestore: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("firestore: HTTP %d: %s", e.Code, e.Message)
}

// documentURL builds the REST path of collection/id.
func (f *Firestore) documentURL(collection, id string) string {
	return fmt.Sprintf("%s/projects/%s/databases/%s/documents/%s/%s",
		f.baseURL,
		url.PathEscape(f.projectID),
		url.PathEscape(f.database),
		url.PathEscape(collection),
		url.PathEscape(id),
	)
}

// Get fetches collection/id. A 404 yields a missing snapshot.
func (f *Firestore) Get(ctx context.Context, collection, id string) (*session.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.documentURL(collection, id), nil)
	if err != nil {
		return nil, err
	}
	if f.tokens != nil {
		token, err := f.tokens.IDToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore: id token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return session.MissingSnapshot(id), nil
	default:
		return nil, decodeStatusError(resp)
	}

	var doc struct {
		Name   string           `json:"name"`
		Fields map[string]Value `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode document: %w", err)
	}
	data, err := DecodeFields(doc.Fields)
	if err != nil {
		return nil, err
	}
	return session.NewSnapshot(id, data), nil
}

// Close is a no-op; Firestore holds no connections of its own.
func (f *Firestore) Close() {}

func decodeStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &env); err == nil && env.Error.Message != "" {
		return &StatusError{Code: resp.StatusCode, Status: env.Error.Status, Message: env.Error.Message}
	}
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(b))}
}
