// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns transport errors from the identity and profile
// services into user-friendly messages.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Category is the broad class of a network failure.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	ConnectionRefused
	TLS
	Server
)

// Classify reports which category err falls into.
func Classify(err error) Category {
	switch {
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return ConnectionRefused
	case isSSLError(err):
		return TLS
	case isServerError(err.Error()):
		return Server
	default:
		return Generic
	}
}

// FormatNetworkError prints a friendly explanation of err for the user and
// returns err wrapped. action describes what was being done ("signing in"),
// host names the service that was contacted.
func FormatNetworkError(err error, action, host string) error {
	if err == nil {
		return nil
	}
	if host == "" {
		host = "the server"
	}

	switch Classify(err) {
	case Timeout:
		showTimeoutError(action)
	case DNS:
		showDNSError(action, host)
	case ConnectionRefused:
		showConnectionRefusedError(action, host)
	case TLS:
		showSSLError(action)
	case Server:
		showServerError(action, host)
	default:
		showGenericError(action, host, err.Error())
	}
	return fmt.Errorf("network error: %w", err)
}

func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError matches 5xx statuses as rendered by the identity and profile clients.
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, marker := range []string{
		"http 500", "http 502", "http 503", "http 504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"unavailable:", "internal:",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func showTimeoutError(action string) {
	pterm.Printf("⏱️  Connection timeout while %s\n", action)
	pterm.Println()
	pterm.Println("The service took too long to respond. This could mean:")
	pterm.Println("  • Slow internet connection")
	pterm.Println("  • Network firewall is blocking the connection")
	pterm.Println()
	pterm.Println("Please try again in a few moments.")
	pterm.Println()
}

func showDNSError(action, host string) {
	pterm.Printf("🌐 Cannot resolve server address while %s\n", action)
	pterm.Println()
	pterm.Printf("Unable to look up %s. Please check:\n", host)
	pterm.Println("  • Your internet connection is working")
	pterm.Println("  • DNS settings are correct")
	pterm.Println("  • The configured service URL is spelled correctly")
	pterm.Println()
}

func showConnectionRefusedError(action, host string) {
	pterm.Printf("🚫 Connection refused while %s\n", action)
	pterm.Println()
	pterm.Printf("%s is not accepting connections. If you use the local emulator,\n", host)
	pterm.Println("make sure it is running and that the configured URL and port match.")
	pterm.Println()
}

func showSSLError(action string) {
	pterm.Printf("🔒 Secure connection failed while %s\n", action)
	pterm.Println()
	pterm.Println("Cannot establish a secure HTTPS connection. Try:")
	pterm.Println("  • Check your system date and time")
	pterm.Println("  • Verify network proxy settings")
	pterm.Println()
}

func showServerError(action, host string) {
	pterm.Printf("⚠️  Server error while %s\n", action)
	pterm.Println()
	pterm.Printf("%s reported an internal error. This is not a problem with your setup.\n", host)
	pterm.Println("Please try again in a few minutes.")
	pterm.Println()
}

func showGenericError(action, host, details string) {
	pterm.Printf("❌ Cannot reach %s while %s\n", host, action)
	pterm.Println()
	pterm.Println("Please check your internet connection and firewall settings.")
	pterm.Println()

	if details != "" {
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", details)
		pterm.Println()
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
