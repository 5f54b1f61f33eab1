package rule

import (
	"bytes"
	"fmt"

	"bsa-go/internal/passwd"
)

// Verdict is the outcome of a compliance audit. A Verdict is only produced
// for a fully parseable database; format problems surface as errors, not as
// non-compliance.
type Verdict struct {
	Compliant bool
	// Reasons holds one human-readable diagnostic per offending record,
	// in file order.
	Reasons []string
}

// Report audits the account database and returns a Verdict. It never writes.
// A malformed database (short line, non-integer UID) is an operational
// error, distinct from a non-compliant finding.
func (s *Service) Report() (*Verdict, error) {
	data, err := s.fsys.ReadFile(s.settings.PasswdPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.settings.PasswdPath, err)
	}

	lines, err := passwd.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.settings.PasswdPath, err)
	}

	v := &Verdict{Compliant: true}
	for _, ln := range lines {
		if ln.Entry == nil {
			continue
		}
		c, err := passwd.Classify(ln, s.settings.UIDThreshold)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", s.settings.PasswdPath, err)
		}
		if c.NeedsRemediation() {
			v.Compliant = false
			v.Reasons = append(v.Reasons, fmt.Sprintf(
				"system account %q (uid %s) permits login", ln.Entry.Name, ln.Entry.UID))
		}
	}

	s.logger.Info("report complete", "compliant", v.Compliant, "findings", len(v.Reasons))
	return v, nil
}
