// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

func TestParseAuthError(t *testing.T) {
	tests := []struct {
		msg  string
		want AuthErrorType
	}{
		{"identity: 400 INVALID_LOGIN_CREDENTIALS", AuthErrorCredentials},
		{"identity: 400 EMAIL_NOT_FOUND", AuthErrorCredentials},
		{"identity: 400 USER_DISABLED: The user account has been disabled", AuthErrorDisabled},
		{"identity: 400 TOO_MANY_ATTEMPTS_TRY_LATER", AuthErrorRateLimited},
		{"identity: 400 API key not valid. Please pass a valid API key.", AuthErrorConfig},
		{"identity: 400 OPERATION_NOT_ALLOWED", AuthErrorProvider},
		{"dial tcp: lookup identitytoolkit.googleapis.com: no such host", AuthErrorNetwork},
		{"something else", AuthErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := ParseAuthError(tt.msg); got != tt.want {
				t.Errorf("ParseAuthError(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestFormatAuthErrorMasksDetails(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	out := FormatAuthError(`INVALID_LOGIN_CREDENTIALS {"password":"hunter2"}`)

	if !strings.Contains(out, "The email or password is incorrect.") {
		t.Fatalf("missing description in %q", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("password leaked into output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]pterm.LogLevel{
		"debug":    pterm.LogLevelDebug,
		"WARN":     pterm.LogLevelWarn,
		"error":    pterm.LogLevelError,
		"disabled": pterm.LogLevelDisabled,
		"":         pterm.LogLevelInfo,
		"verbose":  pterm.LogLevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
