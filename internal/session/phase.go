// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

// Phase is where the session sits between sign-in and a loaded profile.
type Phase int

const (
	// LoggedOut means no UID is set.
	LoggedOut Phase = iota
	// AuthPending means auth fields are set and the profile fetch is in flight.
	AuthPending
	// AuthenticatedNoProfile means the fetch settled without profile data.
	AuthenticatedNoProfile
	// AuthenticatedWithProfile means profile data has been merged.
	AuthenticatedWithProfile
)

func (p Phase) String() string {
	switch p {
	case LoggedOut:
		return "logged_out"
	case AuthPending:
		return "auth_pending"
	case AuthenticatedNoProfile:
		return "authenticated_no_profile"
	case AuthenticatedWithProfile:
		return "authenticated_with_profile"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the store.
type State struct {
	Record Record
	Phase  Phase
}

// IsAuthenticated reports whether a UID is set.
func (r Record) IsAuthenticated() bool { return r.UID != nil }

// IsEmailVerified reports whether emailVerified is present. An explicit false
// counts as verified; use IsEmailVerifiedStrict for the boolean value.
func (r Record) IsEmailVerified() bool {
	return r.EmailVerified != nil || r.hasRaw(KeyEmailVerified)
}

// IsOnboarded reports whether onboarded is present, regardless of its value
// or type. A timestamp counts.
func (r Record) IsOnboarded() bool { return r.Onboarded != nil || r.hasRaw(KeyOnboarded) }

// IsEmailVerifiedStrict reports whether emailVerified is present and true.
func (r Record) IsEmailVerifiedStrict() bool { return r.EmailVerified != nil && *r.EmailVerified }

// IsOnboardedStrict reports whether onboarded is present and true.
func (r Record) IsOnboardedStrict() bool { return r.Onboarded != nil && *r.Onboarded }
