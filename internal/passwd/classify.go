package passwd

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultUIDThreshold is the boundary between system and human accounts.
// Accounts at or above it are never touched.
const DefaultUIDThreshold = 500

// BlockingShell is the shell written by remediation to block login.
const BlockingShell = "/sbin/nologin"

// blockedSuffixes are the shell endings that already block login. The check
// is anchored to the end of the raw line, not the canonical shell field,
// because a trailing override field governs the effective shell.
var blockedSuffixes = []string{":/sbin/nologin", ":/dev/null"}

// Classification is the per-record audit outcome.
type Classification struct {
	// Exempt accounts (root, or human accounts at/above the UID threshold)
	// are never modified regardless of their shell.
	Exempt bool
	// LoginBlocked reports whether the account's effective shell already
	// prevents login.
	LoginBlocked bool
}

// NeedsRemediation reports whether fix must rewrite this record.
func (c Classification) NeedsRemediation() bool {
	return !c.Exempt && !c.LoginBlocked
}

// Classify audits one substantive record against the UID threshold.
// A UID field that is neither the literal "0" nor an integer fails with
// ErrMalformed: a file that cannot be fully understood must never be
// partially remediated.
func Classify(ln Line, uidThreshold int) (Classification, error) {
	e := ln.Entry
	if e == nil {
		return Classification{}, fmt.Errorf("classify called on non-entry line %q", ln.Raw)
	}

	exempt, err := exemptUID(e.UID, uidThreshold)
	if err != nil {
		return Classification{}, err
	}

	return Classification{
		Exempt:       exempt,
		LoginBlocked: loginBlocked(ln.Raw),
	}, nil
}

// exemptUID reports whether the account is root or a human account.
// The literal token "0" is exempt before integer parsing, mirroring the
// root special case in the classic rule.
func exemptUID(field string, threshold int) (bool, error) {
	if field == "0" {
		return true, nil
	}
	uid, err := strconv.Atoi(field)
	if err != nil {
		return false, fmt.Errorf("%w: uid field %q is not an integer", ErrMalformed, field)
	}
	return uid == 0 || uid >= threshold, nil
}

func loginBlocked(raw string) bool {
	line := strings.TrimRight(raw, " \t")
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(line, suffix) {
			return true
		}
	}
	return false
}
