// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"bytes"
	"context"
	"sync"

	"github.com/pterm/pterm"
)

type fakeAuth struct {
	mu          sync.Mutex
	calls       []string
	persistence Persistence
	redirected  Provider

	persistErr error
	signInErr  error
	signOutErr error
	record     AuthRecord
}

func (f *fakeAuth) note(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAuth) SetPersistence(ctx context.Context, mode Persistence) error {
	f.note("setPersistence")
	f.mu.Lock()
	f.persistence = mode
	f.mu.Unlock()
	return f.persistErr
}

func (f *fakeAuth) SignInWithEmailAndPassword(ctx context.Context, email, password string) (AuthRecord, error) {
	f.note("signIn:" + email)
	if f.signInErr != nil {
		return AuthRecord{}, f.signInErr
	}
	return f.record, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.note("signOut")
	return f.signOutErr
}

func (f *fakeAuth) SignInWithRedirect(ctx context.Context, p Provider) error {
	f.note("redirect:" + p.ProviderID())
	f.mu.Lock()
	f.redirected = p
	f.mu.Unlock()
	return nil
}

type fakeProvider string

func (p fakeProvider) ProviderID() string { return string(p) }

// fakeDocs serves documents from a map. When gate is set, Get blocks until
// the gate is closed or the context ends.
type fakeDocs struct {
	docs map[string]map[string]any
	err  error
	gate chan struct{}

	mu       sync.Mutex
	requests []string
}

func (f *fakeDocs) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	f.mu.Lock()
	f.requests = append(f.requests, collection+"/"+id)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.docs[id]
	if !ok {
		return MissingSnapshot(id), nil
	}
	return NewSnapshot(id, data), nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// syncBuffer lets the logger write from fetch goroutines while tests read.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w *syncBuffer) *pterm.Logger {
	return pterm.DefaultLogger.
		WithWriter(w).
		WithFormatter(pterm.LogFormatterJSON).
		WithLevel(pterm.LogLevelDebug)
}
