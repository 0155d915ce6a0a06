// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"maps"
)

// UsersCollection is the document collection holding user profiles, keyed by UID.
const UsersCollection = "Users"

// Persistence selects how long the auth client keeps a signed-in session.
type Persistence string

const (
	// PersistenceLocal keeps the session across process restarts.
	PersistenceLocal Persistence = "local"
	// PersistenceSession keeps the session for the life of the process.
	PersistenceSession Persistence = "session"
	// PersistenceNone keeps only what the current sign-in needs.
	PersistenceNone Persistence = "none"
)

// Valid reports whether p is a known persistence mode.
func (p Persistence) Valid() bool {
	switch p {
	case PersistenceLocal, PersistenceSession, PersistenceNone:
		return true
	}
	return false
}

// Credentials are the email/password pair for AuthLogin.
type Credentials struct {
	Email    string
	Password string
}

// AuthRecord is the identity provider's view of a signed-in user.
// Empty strings mean the provider did not report the value.
type AuthRecord struct {
	UID           string
	Email         string
	EmailVerified bool
	IsAnonymous   bool
	DisplayName   string
	PhotoURL      string
	ProviderID    string

	IDToken      string
	RefreshToken string
}

// Provider is an opaque social sign-in configuration handed to the auth client.
type Provider interface {
	ProviderID() string
}

// Providers groups the social providers the store can redirect to.
// Nil entries are not configured.
type Providers struct {
	Google   Provider
	Facebook Provider
	LinkedIn Provider
}

// AuthClient is the capability the store needs from the identity provider SDK.
type AuthClient interface {
	SetPersistence(ctx context.Context, mode Persistence) error
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (AuthRecord, error)
	SignOut(ctx context.Context) error
	// SignInWithRedirect starts a redirect-based sign-in and returns once the
	// redirect has been handed off. Completion is reported through the
	// client's auth-state listener, not through this call.
	SignInWithRedirect(ctx context.Context, p Provider) error
}

// Snapshot is the result of a document lookup.
type Snapshot struct {
	id     string
	exists bool
	data   map[string]any
}

// NewSnapshot returns a snapshot of an existing document.
func NewSnapshot(id string, data map[string]any) *Snapshot {
	if data == nil {
		data = map[string]any{}
	}
	return &Snapshot{id: id, exists: true, data: data}
}

// MissingSnapshot returns a snapshot for a document that does not exist.
func MissingSnapshot(id string) *Snapshot {
	return &Snapshot{id: id}
}

// ID returns the document ID.
func (s *Snapshot) ID() string { return s.id }

// Exists reports whether the document exists.
func (s *Snapshot) Exists() bool { return s != nil && s.exists }

// Data returns a copy of the document fields, or nil when the document is missing.
func (s *Snapshot) Data() map[string]any {
	if !s.Exists() {
		return nil
	}
	return maps.Clone(s.data)
}

// DocumentStore looks up a single document by collection and ID.
// A missing document is a snapshot with Exists() == false, not an error.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f(message).
func (f NotifierFunc) Notify(message string) { f(message) }
