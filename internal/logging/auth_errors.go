// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// AuthErrorType represents the category of an identity provider error.
type AuthErrorType int

const (
	AuthErrorUnknown AuthErrorType = iota
	AuthErrorCredentials
	AuthErrorDisabled
	AuthErrorRateLimited
	AuthErrorNetwork
	AuthErrorConfig
	AuthErrorProvider
)

// ParseAuthError categorizes an identity provider error message.
func ParseAuthError(errMsg string) AuthErrorType {
	upper := strings.ToUpper(errMsg)

	switch {
	case strings.Contains(upper, "INVALID_LOGIN_CREDENTIALS"),
		strings.Contains(upper, "INVALID_PASSWORD"),
		strings.Contains(upper, "EMAIL_NOT_FOUND"),
		strings.Contains(upper, "INVALID_EMAIL"):
		return AuthErrorCredentials
	case strings.Contains(upper, "USER_DISABLED"):
		return AuthErrorDisabled
	case strings.Contains(upper, "TOO_MANY_ATTEMPTS"):
		return AuthErrorRateLimited
	case strings.Contains(upper, "API_KEY"),
		strings.Contains(upper, "API KEY"),
		strings.Contains(upper, "CONFIGURATION_NOT_FOUND"),
		strings.Contains(upper, "PROJECT_NOT_FOUND"):
		return AuthErrorConfig
	case strings.Contains(upper, "OPERATION_NOT_ALLOWED"),
		strings.Contains(upper, "INVALID_IDP_RESPONSE"),
		strings.Contains(upper, "FEDERATED_USER_ID_ALREADY_LINKED"):
		return AuthErrorProvider
	case strings.Contains(upper, "CONNECTION REFUSED"),
		strings.Contains(upper, "NO SUCH HOST"),
		strings.Contains(upper, "TIMEOUT"),
		strings.Contains(upper, "DEADLINE EXCEEDED"):
		return AuthErrorNetwork
	}
	return AuthErrorUnknown
}

// FormatAuthError formats a sign-in or sign-out failure in a user-friendly way.
func FormatAuthError(errMsg string) string {
	errType := ParseAuthError(errMsg)

	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Sign-in failed"))
	builder.WriteString("\n\n")

	switch errType {
	case AuthErrorCredentials:
		builder.WriteString("The email or password is incorrect.\n")
	case AuthErrorDisabled:
		builder.WriteString("This account has been disabled by an administrator.\n")
	case AuthErrorRateLimited:
		builder.WriteString("Too many failed attempts. Access is temporarily blocked.\n")
		builder.WriteString("Wait a few minutes or reset your password.\n")
	case AuthErrorConfig:
		builder.WriteString("The identity provider rejected this client's configuration.\n")
		builder.WriteString("Check firebase.api_key and firebase.project_id in your config.\n")
	case AuthErrorProvider:
		builder.WriteString("The social sign-in provider could not be used for this account.\n")
		builder.WriteString("Make sure the provider is enabled for the project.\n")
	case AuthErrorNetwork:
		builder.WriteString("The identity provider could not be reached.\n")
		builder.WriteString("Check your internet connection and try again.\n")
	default:
		builder.WriteString("The identity provider returned an unexpected error.\n")
	}

	builder.WriteString("\n")

	if errType == AuthErrorConfig {
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Update your configuration and run 'sessionkit login' again"))
	} else {
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Please run 'sessionkit login' and try again"))
	}
	builder.WriteString("\n")

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
	}

	return builder.String()
}

// PresentAuthError displays a formatted sign-in error.
func PresentAuthError(err error) {
	if err == nil {
		return
	}
	fmt.Println()
	fmt.Println(FormatAuthError(err.Error()))
	fmt.Println()
}
