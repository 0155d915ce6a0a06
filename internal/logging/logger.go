// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// ParseLevel maps a config value to a pterm log level. Unknown values yield info.
func ParseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "disabled", "off", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

// NewLogger returns a logger writing to w (stderr when nil) at the given level.
// SESSIONKIT_LOG_FORMAT=json switches to JSON lines.
func NewLogger(level string, w io.Writer) *pterm.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := pterm.DefaultLogger.WithLevel(ParseLevel(level)).WithWriter(w)
	if os.Getenv("SESSIONKIT_LOG_FORMAT") == "json" {
		l = l.WithFormatter(pterm.LogFormatterJSON)
	}
	return l
}
