package cmd

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"sessionkit/cli/internal/session"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner draws frames followed by text on a single line of w until
// the returned stop function is called. stop clears the line and waits for
// the spinner goroutine to exit.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

// displayName picks the friendliest identifier the record carries.
func displayName(rec session.Record) string {
	switch {
	case rec.DisplayName != nil && *rec.DisplayName != "":
		return *rec.DisplayName
	case rec.Email != nil && *rec.Email != "":
		return *rec.Email
	case rec.UID != nil:
		return *rec.UID
	}
	return ""
}

var loginGreetings = []string{
	"🎉 Welcome back, %s!",
	"✨ Great to see you, %s!",
	"🚀 You're all set, %s!",
	"👋 Hello %s!",
	"💫 Signed in as %s",
	"🔓 Access granted! Welcome %s!",
}

// loginGreeting returns a random greeting for rec, or a plain success line
// when the record names nobody.
func loginGreeting(rec session.Record) string {
	name := displayName(rec)
	if name == "" {
		return "✅ Login successful!"
	}
	return fmt.Sprintf(loginGreetings[rand.Intn(len(loginGreetings))], name)
}

func notLoggedIn() {
	fmt.Println("🔒 You're not logged in yet!")
	fmt.Println("   Run 'sessionkit login' to get started.")
}

// renderState formats a state snapshot for the terminal.
func renderState(st session.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase:          %s\n", st.Phase)
	if !st.Record.IsAuthenticated() {
		b.WriteString("User:           (signed out)\n")
		return b.String()
	}

	rec := st.Record
	fmt.Fprintf(&b, "User:           %s\n", displayName(rec))
	fmt.Fprintf(&b, "UID:            %s\n", optional(rec.UID))
	fmt.Fprintf(&b, "Email:          %s\n", optional(rec.Email))
	fmt.Fprintf(&b, "Email verified: %s\n", flag(rec.EmailVerified, rec.Raw[session.KeyEmailVerified]))
	fmt.Fprintf(&b, "Onboarded:      %s\n", flag(rec.Onboarded, rec.Raw[session.KeyOnboarded]))
	if rec.PhotoURL != nil {
		fmt.Fprintf(&b, "Photo:          %s\n", *rec.PhotoURL)
	}
	if rec.IsAnonymous != nil && *rec.IsAnonymous {
		b.WriteString("Anonymous:      yes\n")
	}
	return b.String()
}

func optional(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

// flag renders a boolean field, falling back to its raw value when the
// profile stored something other than a bool.
func flag(p *bool, raw any) string {
	switch {
	case p == nil && raw != nil:
		return fmt.Sprint(raw)
	case p == nil:
		return "-"
	case *p:
		return "yes"
	default:
		return "no"
	}
}
