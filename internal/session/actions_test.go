// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("profile fetch did not settle")
	}
}

func TestAuthSuccessMergesProfile(t *testing.T) {
	docs := &fakeDocs{docs: map[string]map[string]any{
		"u1": {"displayName": "Bob", "onboarded": true},
	}}
	s := newTestStore(t, nil, docs)

	done := s.AuthSuccess(AuthRecord{UID: "u1", Email: "e@x.com", EmailVerified: true})
	waitDone(t, done)

	want := map[string]any{
		"uid":           "u1",
		"email":         "e@x.com",
		"emailVerified": true,
		"displayName":   "Bob",
		"onboarded":     true,
		"photoURL":      nil,
		"isAnonymous":   nil,
	}
	if got := s.Record().Map(); !reflect.DeepEqual(got, want) {
		t.Fatalf("record = %v, want %v", got, want)
	}
	if s.Phase() != AuthenticatedWithProfile {
		t.Fatalf("phase = %v, want %v", s.Phase(), AuthenticatedWithProfile)
	}
	if len(docs.requests) != 1 || docs.requests[0] != "Users/u1" {
		t.Fatalf("requests = %v, want [Users/u1]", docs.requests)
	}
}

func TestAuthSuccessKeepsOnboardedTimestamp(t *testing.T) {
	onboardedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := &fakeDocs{docs: map[string]map[string]any{
		"u1": {"onboarded": onboardedAt},
	}}
	s := newTestStore(t, nil, docs)

	waitDone(t, s.AuthSuccess(AuthRecord{UID: "u1"}))

	if !s.IsOnboarded() || s.IsOnboardedStrict() {
		t.Fatalf("onboarded = %v strict = %v, want true and false", s.IsOnboarded(), s.IsOnboardedStrict())
	}
	if got := s.Record().Map()["onboarded"]; got != onboardedAt {
		t.Fatalf("onboarded = %v, want %v", got, onboardedAt)
	}
}

func TestAuthSuccessCommitsAuthBeforeFetch(t *testing.T) {
	docs := &fakeDocs{gate: make(chan struct{})}
	s := newTestStore(t, nil, docs)

	done := s.AuthSuccess(AuthRecord{UID: "u1", Email: "e@x.com"})

	if !s.IsAuthenticated() {
		t.Fatal("auth fields should be committed before the fetch settles")
	}
	if s.Phase() != AuthPending {
		t.Fatalf("phase = %v, want %v", s.Phase(), AuthPending)
	}
	if s.Record().DisplayName != nil {
		t.Fatal("profile fields should stay default while the fetch is pending")
	}

	close(docs.gate)
	waitDone(t, done)
}

func TestAuthSuccessMissingProfile(t *testing.T) {
	logs := &syncBuffer{}
	notes := &recordingNotifier{}
	s := newTestStore(t, nil, &fakeDocs{}, WithLogger(testLogger(logs)), WithNotifier(notes))

	done := s.AuthSuccess(AuthRecord{UID: "u1", Email: "e@x.com", EmailVerified: true})
	waitDone(t, done)

	rec := s.Record()
	if rec.UID == nil || *rec.UID != "u1" || rec.Email == nil || rec.EmailVerified == nil {
		t.Fatalf("auth fields missing: %+v", rec)
	}
	if rec.DisplayName != nil || rec.Onboarded != nil || rec.PhotoURL != nil || rec.IsAnonymous != nil {
		t.Fatalf("profile fields should stay default: %+v", rec)
	}
	if s.Phase() != AuthenticatedNoProfile {
		t.Fatalf("phase = %v, want %v", s.Phase(), AuthenticatedNoProfile)
	}
	if !strings.Contains(logs.String(), "user profile not found") {
		t.Fatalf("expected missing profile to be logged, got %q", logs.String())
	}
	if len(notes.all()) != 0 {
		t.Fatalf("missing profile should not notify the user, got %v", notes.all())
	}
}

func TestAuthSuccessFetchFailureNotifies(t *testing.T) {
	notes := &recordingNotifier{}
	docs := &fakeDocs{err: errors.New("permission denied")}
	s := newTestStore(t, nil, docs, WithNotifier(notes), WithLogger(testLogger(&syncBuffer{})))

	done := s.AuthSuccess(AuthRecord{UID: "u1", Email: "e@x.com"})
	waitDone(t, done)

	if got := notes.all(); len(got) != 1 || got[0] != FetchFailedMessage {
		t.Fatalf("notifications = %v, want [%q]", got, FetchFailedMessage)
	}
	if !s.IsAuthenticated() {
		t.Fatal("auth fields should survive a failed profile fetch")
	}
	if s.Phase() != AuthenticatedNoProfile {
		t.Fatalf("phase = %v, want %v", s.Phase(), AuthenticatedNoProfile)
	}
}

func TestAuthLogoutSuccessRestoresDefault(t *testing.T) {
	docs := &fakeDocs{docs: map[string]map[string]any{
		"u1": {"displayName": "Bob", "onboarded": true},
	}}
	s := newTestStore(t, nil, docs)
	waitDone(t, s.AuthSuccess(AuthRecord{UID: "u1", Email: "e@x.com", EmailVerified: true}))

	s.AuthLogoutSuccess()

	if got := s.Record(); !reflect.DeepEqual(got, DefaultRecord()) {
		t.Fatalf("record = %+v, want default", got)
	}
	if s.Phase() != LoggedOut {
		t.Fatalf("phase = %v, want %v", s.Phase(), LoggedOut)
	}
}

func TestStaleProfileIsDiscardedAfterLogout(t *testing.T) {
	docs := &fakeDocs{
		docs: map[string]map[string]any{"u1": {"displayName": "Bob"}},
		gate: make(chan struct{}),
	}
	s := newTestStore(t, nil, docs, WithLogger(testLogger(&syncBuffer{})))

	done := s.AuthSuccess(AuthRecord{UID: "u1"})
	s.AuthLogoutSuccess()
	close(docs.gate)
	waitDone(t, done)

	if got := s.Record(); !reflect.DeepEqual(got, DefaultRecord()) {
		t.Fatalf("record = %+v, want default after a stale fetch", got)
	}
}

func TestStaleProfileIsDiscardedAfterUserSwitch(t *testing.T) {
	docs := &fakeDocs{
		docs: map[string]map[string]any{
			"u1": {"displayName": "Bob"},
			"u2": {"displayName": "Alice"},
		},
		gate: make(chan struct{}),
	}
	s := newTestStore(t, nil, docs, WithLogger(testLogger(&syncBuffer{})))

	first := s.AuthSuccess(AuthRecord{UID: "u1"})
	second := s.AuthSuccess(AuthRecord{UID: "u2"})
	close(docs.gate)
	waitDone(t, first)
	waitDone(t, second)

	rec := s.Record()
	if rec.UID == nil || *rec.UID != "u2" {
		t.Fatalf("uid = %v, want u2", rec.UID)
	}
	if rec.DisplayName == nil || *rec.DisplayName != "Alice" {
		t.Fatalf("displayName = %v, want Alice", rec.DisplayName)
	}
}

func TestAuthSuccessWithoutUIDSkipsFetch(t *testing.T) {
	docs := &fakeDocs{}
	s := newTestStore(t, nil, docs, WithLogger(testLogger(&syncBuffer{})))

	waitDone(t, s.AuthSuccess(AuthRecord{Email: "e@x.com"}))

	if len(docs.requests) != 0 {
		t.Fatalf("requests = %v, want none", docs.requests)
	}
	if s.IsAuthenticated() {
		t.Fatal("a record without uid must not authenticate the session")
	}
}

func TestCloseCancelsPendingFetch(t *testing.T) {
	notes := &recordingNotifier{}
	docs := &fakeDocs{gate: make(chan struct{})}
	s := NewStore(&fakeAuth{}, docs, WithNotifier(notes), WithLogger(testLogger(&syncBuffer{})))

	done := s.AuthSuccess(AuthRecord{UID: "u1"})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitDone(t, done)

	if got := notes.all(); len(got) != 0 {
		t.Fatalf("shutdown should not notify, got %v", got)
	}
}

func TestAuthLoginSetsPersistenceThenSignsIn(t *testing.T) {
	auth := &fakeAuth{record: AuthRecord{UID: "u1", Email: "e@x.com"}}
	s := newTestStore(t, auth, nil, WithPersistence(PersistenceSession))

	got, err := s.AuthLogin(context.Background(), Credentials{Email: "e@x.com", Password: "pw"})
	if err != nil {
		t.Fatalf("AuthLogin: %v", err)
	}
	if got.UID != "u1" {
		t.Fatalf("uid = %q, want u1", got.UID)
	}
	if want := []string{"setPersistence", "signIn:e@x.com"}; !reflect.DeepEqual(auth.calls, want) {
		t.Fatalf("calls = %v, want %v", auth.calls, want)
	}
	if auth.persistence != PersistenceSession {
		t.Fatalf("persistence = %q, want %q", auth.persistence, PersistenceSession)
	}
	if s.IsAuthenticated() {
		t.Fatal("AuthLogin must not mutate state; the auth listener does")
	}
}

func TestAuthLoginPropagatesErrors(t *testing.T) {
	signInErr := errors.New("INVALID_LOGIN_CREDENTIALS")
	persistErr := errors.New("keychain locked")

	tests := []struct {
		name      string
		auth      *fakeAuth
		want      error
		wantCalls []string
	}{
		{
			name:      "sign in fails",
			auth:      &fakeAuth{signInErr: signInErr},
			want:      signInErr,
			wantCalls: []string{"setPersistence", "signIn:e@x.com"},
		},
		{
			name:      "persistence fails",
			auth:      &fakeAuth{persistErr: persistErr},
			want:      persistErr,
			wantCalls: []string{"setPersistence"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, tt.auth, nil)
			_, err := s.AuthLogin(context.Background(), Credentials{Email: "e@x.com", Password: "bad"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(tt.auth.calls, tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", tt.auth.calls, tt.wantCalls)
			}
		})
	}
}

func TestAuthLogoutPropagatesErrors(t *testing.T) {
	want := errors.New("network down")
	s := newTestStore(t, &fakeAuth{signOutErr: want}, nil)

	if err := s.AuthLogout(context.Background()); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestSocialSignInPassesProviderThrough(t *testing.T) {
	providers := Providers{
		Google:   fakeProvider("google.com"),
		Facebook: fakeProvider("facebook.com"),
		LinkedIn: fakeProvider("linkedin.com"),
	}

	tests := []struct {
		name   string
		action func(*Store, context.Context) error
		want   Provider
	}{
		{"google", (*Store).SignInWithGoogle, providers.Google},
		{"facebook", (*Store).SignInWithFacebook, providers.Facebook},
		{"linkedin", (*Store).SignInWithLinkedIn, providers.LinkedIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			s := newTestStore(t, auth, nil, WithProviders(providers))
			if err := tt.action(s, context.Background()); err != nil {
				t.Fatalf("sign in: %v", err)
			}
			if auth.redirected != tt.want {
				t.Fatalf("redirected to %v, want %v", auth.redirected, tt.want)
			}
			if s.IsAuthenticated() {
				t.Fatal("redirect must not authenticate the session by itself")
			}
		})
	}
}

func TestSocialSignInWithoutProvider(t *testing.T) {
	auth := &fakeAuth{}
	s := newTestStore(t, auth, nil)

	err := s.SignInWithLinkedIn(context.Background())
	if !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("err = %v, want %v", err, ErrProviderNotConfigured)
	}
	if len(auth.calls) != 0 {
		t.Fatalf("calls = %v, want none", auth.calls)
	}
}
