// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"fmt"
)

// FetchFailedMessage is shown to the user when the profile lookup fails.
const FetchFailedMessage = "Failed to fetch user data."

// ErrProviderNotConfigured is returned by a SignInWith* action whose provider is unset.
var ErrProviderNotConfigured = errors.New("sign-in provider not configured")

// AuthLogin applies the store's persistence mode and signs in with email and
// password. Errors from the auth client are returned unchanged.
func (s *Store) AuthLogin(ctx context.Context, c Credentials) (AuthRecord, error) {
	if err := s.auth.SetPersistence(ctx, s.persistence); err != nil {
		return AuthRecord{}, err
	}
	return s.auth.SignInWithEmailAndPassword(ctx, c.Email, c.Password)
}

// AuthLogout signs out. Errors from the auth client are returned unchanged.
func (s *Store) AuthLogout(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

// SignInWithGoogle starts a Google redirect sign-in.
func (s *Store) SignInWithGoogle(ctx context.Context) error {
	return s.signInWithRedirect(ctx, "google", s.providers.Google)
}

// SignInWithFacebook starts a Facebook redirect sign-in.
func (s *Store) SignInWithFacebook(ctx context.Context) error {
	return s.signInWithRedirect(ctx, "facebook", s.providers.Facebook)
}

// SignInWithLinkedIn starts a LinkedIn redirect sign-in.
func (s *Store) SignInWithLinkedIn(ctx context.Context) error {
	return s.signInWithRedirect(ctx, "linkedin", s.providers.LinkedIn)
}

func (s *Store) signInWithRedirect(ctx context.Context, name string, p Provider) error {
	if p == nil {
		return fmt.Errorf("%s: %w", name, ErrProviderNotConfigured)
	}
	return s.auth.SignInWithRedirect(ctx, p)
}

// AuthSuccess records a session confirmed by the identity provider and loads
// the user's profile from the Users collection in the background.
//
// Auth fields are committed before AuthSuccess returns. The returned channel
// is closed once the profile fetch has settled. A fetch that settles after
// the session has changed is discarded.
func (s *Store) AuthSuccess(a AuthRecord) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	s.setUserAuthLocked(a)
	if s.rec.UID != nil {
		s.phase = AuthPending
	}
	gen := s.gen
	s.commitLocked()

	if a.UID == "" {
		s.logger.Error("auth success without a uid, skipping profile fetch")
		close(done)
		return done
	}

	s.fetches.Go(func() error {
		defer close(done)
		s.loadProfile(gen, a.UID)
		return nil
	})
	return done
}

// AuthLogoutSuccess clears the record after the identity provider reports a sign-out.
func (s *Store) AuthLogoutSuccess() {
	s.UnsetUserAuth()
	s.UnsetUserDetails()
}

func (s *Store) loadProfile(gen uint64, uid string) {
	snap, err := s.docs.Get(s.ctx, UsersCollection, uid)
	if err != nil {
		if s.ctx.Err() != nil {
			s.logger.Debug("profile fetch cancelled", s.logger.Args("uid", uid))
			return
		}
		s.logger.Warn("profile fetch failed", s.logger.Args("uid", uid, "error", err))
		s.notifier.Notify(FetchFailedMessage)
		s.settleWithoutProfile(gen)
		return
	}
	if !snap.Exists() {
		s.logger.Error("user profile not found", s.logger.Args("collection", UsersCollection, "uid", uid))
		s.settleWithoutProfile(gen)
		return
	}
	s.commitProfile(gen, uid, snap.Data())
}

func (s *Store) commitProfile(gen uint64, uid string, data map[string]any) {
	s.mu.Lock()
	if !s.currentLocked(gen, uid) {
		s.mu.Unlock()
		s.logger.Debug("discarding stale profile", s.logger.Args("uid", uid))
		return
	}
	s.mergeLocked(data)
	s.commitLocked()
}

func (s *Store) settleWithoutProfile(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.phase != AuthPending {
		s.mu.Unlock()
		return
	}
	s.phase = AuthenticatedNoProfile
	s.commitLocked()
}

func (s *Store) currentLocked(gen uint64, uid string) bool {
	return s.gen == gen && s.rec.UID != nil && *s.rec.UID == uid
}
