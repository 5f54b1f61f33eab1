package rule

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"bsa-go/internal/passwd"
)

// FixResult summarizes a remediation run.
type FixResult struct {
	// Changed reports whether the account database was replaced.
	Changed bool
	// Remediated is the number of records whose shell was rewritten.
	Remediated int
	// Detail is a human-readable outcome description.
	Detail string
}

// Fix remediates the account database: every non-exempt, login-capable
// record gets its effective shell replaced with the blocking value, and the
// new content is committed with an atomic, permission-preserving,
// journaled file replacement.
//
// Commit protocol, in order: clear stale journal entries for this rule;
// capture and correct ownership/mode to the root:root 0644 baseline
// (journaling the prior state); construct the replacement; write it to a
// temp file in the same directory; snapshot the prior content to the vault
// and journal the replacement; rename over the original; re-apply the
// baseline and reset the security label. A failure at any step leaves the
// original file untouched. Running Fix on a compliant database writes
// nothing.
func (s *Service) Fix() (*FixResult, error) {
	if !s.settings.Enabled {
		return &FixResult{Detail: "rule is disabled; nothing to do"}, nil
	}

	// Only the latest fix attempt is replayable: stale undo entries from
	// earlier runs must not accumulate.
	if err := s.journal.ClearRuleChanges(RuleID); err != nil {
		return nil, fmt.Errorf("clearing prior journal entries: %w", err)
	}

	path := s.settings.PasswdPath
	data, err := s.fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var seq int64
	state, err := s.fsys.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if state.Mode.Perm() != BaselineMode || state.UID != BaselineUID || state.GID != BaselineGID {
		seq++
		if err := s.correctPerms(path, state, seq); err != nil {
			return nil, err
		}
	}

	content, remediated, err := s.buildReplacement(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if remediated == 0 {
		s.logger.Info("fix complete", "changed", false)
		return &FixResult{Detail: "all system accounts already block login"}, nil
	}

	tmpPath, err := s.fsys.WriteTemp(path, content, BaselineMode)
	if err != nil {
		return nil, fmt.Errorf("writing replacement for %s: %w", path, err)
	}

	// Journal the replacement before the rename so a crash in between still
	// leaves a recoverable undo entry.
	seq++
	if err := s.snapshotPrior(path, data, seq); err != nil {
		s.fsys.Remove(tmpPath)
		return nil, err
	}

	if err := s.fsys.Rename(tmpPath, path); err != nil {
		s.fsys.Remove(tmpPath)
		return nil, fmt.Errorf("replacing %s: %w", path, err)
	}

	if err := s.fsys.Chown(path, BaselineUID, BaselineGID); err != nil {
		return nil, fmt.Errorf("restoring ownership of %s: %w", path, err)
	}
	if err := s.fsys.Chmod(path, BaselineMode); err != nil {
		return nil, fmt.Errorf("restoring mode of %s: %w", path, err)
	}
	s.fsys.RestoreLabel(path)

	s.logger.Info("fix complete", "changed", true, "remediated", remediated)
	return &FixResult{
		Changed:    true,
		Remediated: remediated,
		Detail:     fmt.Sprintf("blocked login for %d system account(s)", remediated),
	}, nil
}

// buildReplacement reconstructs the file content line by line. Comments,
// blanks, exempt records, and already-blocked records are copied verbatim;
// offending records get their effective shell replaced. A malformed line
// aborts with no content produced.
func (s *Service) buildReplacement(data []byte) ([]byte, int, error) {
	lines, err := passwd.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}

	var out strings.Builder
	remediated := 0
	for _, ln := range lines {
		if ln.Entry == nil {
			out.WriteString(ln.Raw)
			out.WriteByte('\n')
			continue
		}
		c, err := passwd.Classify(ln, s.settings.UIDThreshold)
		if err != nil {
			return nil, 0, err
		}
		if !c.NeedsRemediation() {
			out.WriteString(ln.Raw)
			out.WriteByte('\n')
			continue
		}
		out.WriteString(blockEntry(ln.Entry).Join())
		out.WriteByte('\n')
		remediated++
	}
	return []byte(out.String()), remediated, nil
}

// blockEntry rewrites the field that governs the effective login shell.
// A seven-field record keeps its canonical shell field untouched: only the
// trailing override determines login capability on those platforms.
func blockEntry(e *passwd.Entry) *passwd.Entry {
	blocked := *e
	switch {
	case !blocked.HasShell:
		blocked.Shell = passwd.BlockingShell
		blocked.HasShell = true
	case !blocked.HasOverride:
		blocked.Override = passwd.BlockingShell
		blocked.HasOverride = true
	default:
		blocked.Override = passwd.BlockingShell
	}
	return &blocked
}

// correctPerms resets the file to the baseline ownership and mode, recording
// the prior state so rollback can restore it.
func (s *Service) correctPerms(path string, prior FileState, seq int64) error {
	ev := ChangeEvent{
		ID:        s.idgen.New(),
		RuleID:    RuleID,
		Seq:       seq,
		Type:      EventPermChange,
		Path:      path,
		CreatedAt: s.clock.Now(),
	}
	pc := PermChange{
		EventID:   ev.ID,
		Path:      path,
		PriorMode: prior.Mode.Perm(),
		PriorUID:  prior.UID,
		PriorGID:  prior.GID,
	}
	if err := s.journal.RecordPermChange(ev, pc); err != nil {
		return fmt.Errorf("journaling permission change: %w", err)
	}
	if err := s.fsys.Chown(path, BaselineUID, BaselineGID); err != nil {
		return fmt.Errorf("correcting ownership of %s: %w", path, err)
	}
	if err := s.fsys.Chmod(path, BaselineMode); err != nil {
		return fmt.Errorf("correcting mode of %s: %w", path, err)
	}
	s.logger.Info("permissions corrected", "path", path, "prior_mode", prior.Mode.Perm().String())
	return nil
}

// snapshotPrior stores the pre-fix file content in the vault and journals
// the replacement. When an encryptor is configured the vault receives only
// ciphertext, stored under the ciphertext's own checksum.
func (s *Service) snapshotPrior(path string, data []byte, seq int64) error {
	checksum := sha256Hex(data)

	payload := data
	encChecksum := ""
	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		payload = buf.Bytes()
		encChecksum = sha256Hex(payload)
	}

	storeKey := checksum
	if encChecksum != "" {
		storeKey = encChecksum
	}
	if err := s.vault.PutContent(storeKey, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return fmt.Errorf("storing snapshot in vault: %w", err)
	}

	state, err := s.fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	ev := ChangeEvent{
		ID:        s.idgen.New(),
		RuleID:    RuleID,
		Seq:       seq,
		Type:      EventFileReplace,
		Path:      path,
		CreatedAt: s.clock.Now(),
	}
	fc := FileChange{
		EventID:           ev.ID,
		Path:              path,
		Checksum:          checksum,
		EncryptedChecksum: encChecksum,
		Size:              int64(len(data)),
		Mode:              state.Mode.Perm(),
		UID:               state.UID,
		GID:               state.GID,
	}
	if err := s.journal.RecordFileReplacement(ev, fc); err != nil {
		return fmt.Errorf("journaling file replacement: %w", err)
	}
	return nil
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
