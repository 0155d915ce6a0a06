// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"sync"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

// Store owns a session Record. It is safe for concurrent use.
//
// Subscribers are called after every mutation, in mutation order, without the
// record lock held. A subscriber may read the store but must not mutate it.
type Store struct {
	auth        AuthClient
	docs        DocumentStore
	notifier    Notifier
	logger      *pterm.Logger
	persistence Persistence
	providers   Providers

	mu    sync.Mutex
	rec   Record
	phase Phase
	// gen moves whenever the UID changes or the record is cleared, so a
	// profile fetch started for an older session can tell it is stale.
	gen uint64

	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     map[uint64]func(State)
	nextSub  uint64

	ctx     context.Context
	cancel  context.CancelFunc
	fetches errgroup.Group
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for profile errors and stale results.
func WithLogger(l *pterm.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets where user-visible failures are reported.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithPersistence sets the mode AuthLogin applies before signing in.
func WithPersistence(p Persistence) Option {
	return func(s *Store) {
		if p.Valid() {
			s.persistence = p
		}
	}
}

// WithProviders sets the social providers used by the SignInWith* actions.
func WithProviders(p Providers) Option {
	return func(s *Store) { s.providers = p }
}

// NewStore returns a store holding the default record.
// Call Close when the store is no longer needed.
func NewStore(auth AuthClient, docs DocumentStore, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		auth:        auth,
		docs:        docs,
		notifier:    NotifierFunc(func(string) {}),
		logger:      pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo),
		persistence: PersistenceLocal,
		rec:         DefaultRecord(),
		phase:       LoggedOut,
		subs:        make(map[uint64]func(State)),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels in-flight profile fetches and waits for them to return.
func (s *Store) Close() error {
	s.cancel()
	return s.fetches.Wait()
}

// Wait blocks until in-flight profile fetches have settled.
func (s *Store) Wait() {
	_ = s.fetches.Wait()
}

// State returns a copy of the record and the current phase.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Record: s.rec.Clone(), Phase: s.phase}
}

// Record returns a copy of the current record.
func (s *Store) Record() Record {
	return s.State().Record
}

// Phase returns the current session phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// IsAuthenticated reports whether a UID is set.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.IsAuthenticated()
}

// IsEmailVerified reports whether emailVerified is present (not whether it is true).
func (s *Store) IsEmailVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.IsEmailVerified()
}

// IsOnboarded reports whether onboarded is present (not whether it is true).
func (s *Store) IsOnboarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.IsOnboarded()
}

// IsEmailVerifiedStrict reports whether emailVerified is true.
func (s *Store) IsEmailVerifiedStrict() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.IsEmailVerifiedStrict()
}

// IsOnboardedStrict reports whether onboarded is true.
func (s *Store) IsOnboardedStrict() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.IsOnboardedStrict()
}

// Subscribe registers fn to receive the state after every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// SetUserAuth copies email, emailVerified and uid from a into the record.
// Other fields are left as they are.
func (s *Store) SetUserAuth(a AuthRecord) {
	s.mu.Lock()
	s.setUserAuthLocked(a)
	s.commitLocked()
}

// UnsetUserAuth clears email, emailVerified and uid.
func (s *Store) UnsetUserAuth() {
	s.mu.Lock()
	s.rec.Email = nil
	s.rec.EmailVerified = nil
	s.rec.UID = nil
	s.rec.dropRaw(KeyEmail)
	s.rec.dropRaw(KeyEmailVerified)
	s.gen++
	s.phase = LoggedOut
	s.commitLocked()
}

// SetUserDetails shallow-merges data into the record. Named keys overwrite the
// matching field (nil clears it); other keys are kept in Record.Extra.
func (s *Store) SetUserDetails(data map[string]any) {
	s.mu.Lock()
	s.mergeLocked(data)
	s.commitLocked()
}

// UnsetUserDetails resets the whole record to default, auth fields included.
func (s *Store) UnsetUserDetails() {
	s.mu.Lock()
	s.rec = DefaultRecord()
	s.gen++
	s.phase = LoggedOut
	s.commitLocked()
}

func (s *Store) setUserAuthLocked(a AuthRecord) {
	prev := s.rec.UID
	s.rec.Email = optString(a.Email)
	s.rec.EmailVerified = BoolPtr(a.EmailVerified)
	s.rec.UID = optString(a.UID)
	s.rec.dropRaw(KeyEmail)
	s.rec.dropRaw(KeyEmailVerified)
	if !sameString(prev, s.rec.UID) {
		s.gen++
	}
	switch {
	case s.rec.UID == nil:
		s.phase = LoggedOut
	case s.phase == LoggedOut || !sameString(prev, s.rec.UID):
		s.phase = AuthPending
	}
}

func (s *Store) mergeLocked(data map[string]any) {
	prev := s.rec.UID
	for k, v := range data {
		if !s.setField(k, v) {
			s.logger.Warn("ignoring profile uid that is not a string", s.logger.Args("value", v))
		}
	}
	if !sameString(prev, s.rec.UID) {
		s.gen++
	}
	if s.rec.UID == nil {
		s.phase = LoggedOut
	} else {
		s.phase = AuthenticatedWithProfile
	}
}

// setField assigns one merged key. A value of the wrong type for a named
// field clears the field and is kept in Record.Raw. The uid is the exception:
// it must be a string, and setField returns false and leaves it unchanged otherwise.
func (s *Store) setField(key string, v any) bool {
	var typed bool
	switch key {
	case KeyUID:
		return assignString(&s.rec.UID, v)
	case KeyDisplayName:
		typed = setString(&s.rec.DisplayName, v)
	case KeyEmail:
		typed = setString(&s.rec.Email, v)
	case KeyPhotoURL:
		typed = setString(&s.rec.PhotoURL, v)
	case KeyEmailVerified:
		typed = setBool(&s.rec.EmailVerified, v)
	case KeyOnboarded:
		typed = setBool(&s.rec.Onboarded, v)
	case KeyIsAnonymous:
		typed = setBool(&s.rec.IsAnonymous, v)
	default:
		if s.rec.Extra == nil {
			s.rec.Extra = make(map[string]any)
		}
		s.rec.Extra[key] = v
		return true
	}
	if !typed {
		s.logger.Debug("keeping profile value of unexpected type", s.logger.Args("key", key, "value", v))
		s.rec.keepRaw(key, v)
		return true
	}
	s.rec.dropRaw(key)
	return true
}

// commitLocked publishes the state to subscribers and releases s.mu.
// notifyMu is taken before s.mu is released so deliveries keep mutation order.
func (s *Store) commitLocked() {
	st := State{Record: s.rec.Clone(), Phase: s.phase}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func assignString(dst **string, v any) bool {
	switch t := v.(type) {
	case nil:
		*dst = nil
	case string:
		*dst = StringPtr(t)
	default:
		return false
	}
	return true
}

func assignBool(dst **bool, v any) bool {
	switch t := v.(type) {
	case nil:
		*dst = nil
	case bool:
		*dst = BoolPtr(t)
	default:
		return false
	}
	return true
}

// setString is assignString that clears dst when v is not a string.
func setString(dst **string, v any) bool {
	if !assignString(dst, v) {
		*dst = nil
		return false
	}
	return true
}

// setBool is assignBool that clears dst when v is not a bool.
func setBool(dst **bool, v any) bool {
	if !assignBool(dst, v) {
		*dst = nil
		return false
	}
	return true
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return StringPtr(s)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
