// Package terminal provides prompt helpers: reading secrets without echo and
// clearing text that was previously printed.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// LinesFor returns how many terminal rows textLength characters occupy at width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	lines := (textLength + width - 1) / width
	if lines < 1 {
		lines = 1
	}
	return lines
}

// ClearPreviousLines clears textLength characters of prompt and input from w,
// plus the empty line the cursor sits on after Enter.
func ClearPreviousLines(w io.Writer, textLength int) {
	width := 80
	if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 0 {
		width = cols
	}

	linesToClear := LinesFor(textLength, width) + 1
	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// ReadSecret prints prompt and reads one line from stdin. On a terminal the
// input is not echoed; otherwise (pipes, CI) it is read as plain text.
func ReadSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		return strings.TrimSpace(string(b)), err
	}
	return ReadLine(os.Stdin)
}

// ReadLine reads one trimmed line from r. It never reads past the newline,
// so a later prompt on the same reader still sees its own input.
func ReadLine(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			if b.Len() == 0 {
				return "", err
			}
			break
		}
	}
	return strings.TrimSpace(b.String()), nil
}
