// Package passwd parses the system account database (/etc/passwd format)
// into structured records and classifies each account for the
// block-system-accounts rule.
//
// Parsing is strict: a substantive line that cannot be fully understood
// fails the whole file. The account database is exactly the kind of file
// where skipping a bad line and guessing is unacceptable.
package passwd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformed indicates the account database cannot be fully parsed.
// Callers must treat this as fatal for the entire operation, never as
// a per-line condition.
var ErrMalformed = errors.New("malformed account database")

// Field layout constants. A canonical record carries six fields after the
// username; some platform variants append a seventh field that overrides
// the login shell.
const (
	minTokens       = 6 // name:password:uid:gid:gecos:home
	canonicalTokens = 7 // ... plus shell
	overrideTokens  = 8 // ... plus trailing shell-override
)

// Entry is one substantive account record. Field presence is tracked
// explicitly so the remediator never branches on positional indexes.
type Entry struct {
	Name     string
	Password string
	UID      string // raw token; classification parses it
	GID      string
	Gecos    string
	Home     string
	Shell    string
	Override string

	// HasShell is false for the rare six-token record with no shell field.
	HasShell bool
	// HasOverride is true for seven-field records where the trailing
	// field governs the effective login shell.
	HasOverride bool
}

// Line is one logical line of the account database. Comment and blank
// lines carry only Raw and are passed through untouched.
type Line struct {
	Raw     string
	Entry   *Entry
	Comment bool
	Blank   bool
}

// Join reassembles the entry's fields into a passwd line. Raw lines and
// untouched entries should be emitted via Raw instead; Join is only for
// records the remediator has rewritten.
func (e *Entry) Join() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteByte(':')
	b.WriteString(e.Password)
	b.WriteByte(':')
	b.WriteString(e.UID)
	b.WriteByte(':')
	b.WriteString(e.GID)
	b.WriteByte(':')
	b.WriteString(e.Gecos)
	b.WriteByte(':')
	b.WriteString(e.Home)
	if e.HasShell {
		b.WriteByte(':')
		b.WriteString(e.Shell)
	}
	if e.HasOverride {
		b.WriteByte(':')
		b.WriteString(e.Override)
	}
	return b.String()
}

// Parse reads the full text of an account database and returns one Line per
// input line, in original order. A substantive line with fewer than six or
// more than eight colon-delimited tokens fails the whole parse with
// ErrMalformed and no partial result.
func Parse(r io.Reader) ([]Line, error) {
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 1024*1024)

	var lines []Line
	lineno := 0
	for s.Scan() {
		lineno++
		raw := s.Text()
		trim := strings.TrimSpace(raw)
		switch {
		case trim == "":
			lines = append(lines, Line{Raw: raw, Blank: true})
			continue
		case strings.HasPrefix(raw, "#"):
			lines = append(lines, Line{Raw: raw, Comment: true})
			continue
		}

		e, err := parseEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		lines = append(lines, Line{Raw: raw, Entry: e})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading account database: %w", err)
	}
	return lines, nil
}

func parseEntry(raw string) (*Entry, error) {
	// Split keeps trailing empty fields, which matters for lines like
	// "sync:x:4:65534:sync:/bin:".
	tokens := strings.Split(strings.TrimRight(raw, " \t"), ":")
	if len(tokens) < minTokens || len(tokens) > overrideTokens {
		return nil, fmt.Errorf("%w: expected %d-%d fields, got %d",
			ErrMalformed, minTokens, overrideTokens, len(tokens))
	}

	e := &Entry{
		Name:     tokens[0],
		Password: tokens[1],
		UID:      tokens[2],
		GID:      tokens[3],
		Gecos:    tokens[4],
		Home:     tokens[5],
	}
	if len(tokens) >= canonicalTokens {
		e.Shell = tokens[6]
		e.HasShell = true
	}
	if len(tokens) == overrideTokens {
		e.Override = tokens[7]
		e.HasOverride = true
	}
	return e, nil
}
