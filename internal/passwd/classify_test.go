package passwd_test

import (
	"errors"
	"strings"
	"testing"

	"bsa-go/internal/passwd"
)

func parseOne(t *testing.T, line string) passwd.Line {
	t.Helper()
	lines, err := passwd.Parse(strings.NewReader(line + "\n"))
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", line, err)
	}
	if len(lines) != 1 || lines[0].Entry == nil {
		t.Fatalf("Parse(%q) did not yield a single entry", line)
	}
	return lines[0]
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		line        string
		exempt      bool
		blocked     bool
		remediation bool
	}{
		{"root is exempt", "root:x:0:0:root:/root:/bin/bash", true, false, false},
		{"human account is exempt", "alice:x:1001:1001:Alice:/home/alice:/bin/bash", true, false, false},
		{"threshold boundary is exempt", "bob:x:500:500:Bob:/home/bob:/bin/bash", true, false, false},
		{"system account with login shell", "daemon:x:1:1:daemon:/usr/sbin:/bin/sh", false, false, true},
		{"system account with nologin", "bin:x:2:2:bin:/bin:/sbin/nologin", false, true, false},
		{"system account with dev null", "lp:x:7:7:lp:/var/spool/lpd:/dev/null", false, true, false},
		{"override field blocks login", "svc:x:20:20:svc:/var/svc:/bin/bash:/sbin/nologin", false, true, false},
		{"override field allows login", "svc:x:20:20:svc:/var/svc:/sbin/nologin:/bin/bash", false, false, true},
		{"trailing whitespace ignored", "bin:x:2:2:bin:/bin:/sbin/nologin  ", false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := passwd.Classify(parseOne(t, tt.line), passwd.DefaultUIDThreshold)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if c.Exempt != tt.exempt {
				t.Errorf("Exempt = %v, want %v", c.Exempt, tt.exempt)
			}
			if c.LoginBlocked != tt.blocked {
				t.Errorf("LoginBlocked = %v, want %v", c.LoginBlocked, tt.blocked)
			}
			if c.NeedsRemediation() != tt.remediation {
				t.Errorf("NeedsRemediation() = %v, want %v", c.NeedsRemediation(), tt.remediation)
			}
		})
	}

	t.Run("non-integer uid is malformed", func(t *testing.T) {
		t.Parallel()
		_, err := passwd.Classify(parseOne(t, "bad:x:abc:1:bad:/:/bin/sh"), passwd.DefaultUIDThreshold)
		if !errors.Is(err, passwd.ErrMalformed) {
			t.Fatalf("Classify() error = %v, want ErrMalformed", err)
		}
	})

	t.Run("custom threshold", func(t *testing.T) {
		t.Parallel()
		ln := parseOne(t, "svc:x:600:600:svc:/var/svc:/bin/bash")
		c, err := passwd.Classify(ln, 1000)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if c.Exempt {
			t.Error("uid 600 should not be exempt with threshold 1000")
		}
	})
}
