// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"io"

	apperrors "sessionkit/cli/internal/errors"
)

// PresentError writes err to w for the user with secrets masked, followed by
// a hint when the error kind has an obvious fix.
func PresentError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", Mask(err.Error()))

	switch apperrors.KindOf(err) {
	case apperrors.ConfigInvalid:
		fmt.Fprintln(w, "   Check ~/.config/sessionkit/config.json or the SESSIONKIT_* environment variables.")
	case apperrors.StorageUnavailable:
		fmt.Fprintln(w, "   The OS keychain could not be used. Set persistence to \"session\" to keep sign-in in memory.")
	case apperrors.RedirectFailed:
		fmt.Fprintln(w, "   Check oauth.redirect_url and the provider's allowed redirect URIs.")
	}
}
