// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session holds the client-side mirror of the signed-in user.
//
// A Store owns one Record, derives flags from it, forwards sign-in and sign-out
// requests to an AuthClient, and merges the user's profile document from a
// DocumentStore once the identity provider confirms a session. The UID is also
// the document ID of the profile in the Users collection.
package session

import (
	"encoding/json"
	"maps"
)

// Record keys, as they appear in profile documents and in JSON output.
const (
	KeyDisplayName   = "displayName"
	KeyUID           = "uid"
	KeyEmail         = "email"
	KeyEmailVerified = "emailVerified"
	KeyOnboarded     = "onboarded"
	KeyIsAnonymous   = "isAnonymous"
	KeyPhotoURL      = "photoURL"
)

// Record is the session record. A nil field is absent.
type Record struct {
	DisplayName   *string
	UID           *string
	Email         *string
	EmailVerified *bool
	Onboarded     *bool
	IsAnonymous   *bool
	PhotoURL      *string

	// Extra carries profile keys that are not one of the named fields.
	Extra map[string]any

	// Raw carries values of named keys whose type does not fit the field,
	// such as an onboarded timestamp. The field is nil while Raw holds its key.
	Raw map[string]any
}

// DefaultRecord returns the all-absent record.
func DefaultRecord() Record {
	return Record{}
}

// IsDefault reports whether every field is absent.
func (r Record) IsDefault() bool {
	return r.DisplayName == nil && r.UID == nil && r.Email == nil &&
		r.EmailVerified == nil && r.Onboarded == nil && r.IsAnonymous == nil &&
		r.PhotoURL == nil && len(r.Extra) == 0 && len(r.Raw) == 0
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := Record{
		DisplayName:   cloneString(r.DisplayName),
		UID:           cloneString(r.UID),
		Email:         cloneString(r.Email),
		EmailVerified: cloneBool(r.EmailVerified),
		Onboarded:     cloneBool(r.Onboarded),
		IsAnonymous:   cloneBool(r.IsAnonymous),
		PhotoURL:      cloneString(r.PhotoURL),
	}
	if len(r.Extra) > 0 {
		out.Extra = maps.Clone(r.Extra)
	}
	if len(r.Raw) > 0 {
		out.Raw = maps.Clone(r.Raw)
	}
	return out
}

// Map returns the record as a flat map. All named keys are present, with nil
// for absent values. A raw value stands in for a nil named field.
func (r Record) Map() map[string]any {
	m := make(map[string]any, 7+len(r.Extra))
	for k, v := range r.Extra {
		m[k] = v
	}
	m[KeyDisplayName] = r.value(KeyDisplayName, stringValue(r.DisplayName))
	m[KeyUID] = stringValue(r.UID)
	m[KeyEmail] = r.value(KeyEmail, stringValue(r.Email))
	m[KeyEmailVerified] = r.value(KeyEmailVerified, boolValue(r.EmailVerified))
	m[KeyOnboarded] = r.value(KeyOnboarded, boolValue(r.Onboarded))
	m[KeyIsAnonymous] = r.value(KeyIsAnonymous, boolValue(r.IsAnonymous))
	m[KeyPhotoURL] = r.value(KeyPhotoURL, stringValue(r.PhotoURL))
	return m
}

func (r Record) value(key string, typed any) any {
	if typed != nil {
		return typed
	}
	return r.Raw[key]
}

func (r Record) hasRaw(key string) bool {
	_, ok := r.Raw[key]
	return ok
}

func (r *Record) keepRaw(key string, v any) {
	if r.Raw == nil {
		r.Raw = make(map[string]any)
	}
	r.Raw[key] = v
}

func (r *Record) dropRaw(key string) {
	delete(r.Raw, key)
	if len(r.Raw) == 0 {
		r.Raw = nil
	}
}

// MarshalJSON encodes the record using Map.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func stringValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
