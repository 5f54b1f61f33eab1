package rule

import (
	"bytes"
	"fmt"
)

// RollbackResult summarizes an undo run.
type RollbackResult struct {
	// Reverted is the number of change events compensated.
	Reverted int
	Detail   string
}

// Rollback undoes the most recent fix by replaying the rule's recorded
// change events in reverse order, applying the compensating action for each:
// a file replacement is undone by restoring the vaulted snapshot with the
// recorded ownership and mode, a permission change by restoring the prior
// ownership and mode. Replayed events are cleared on success.
//
// decrypt is required when any snapshot was stored encrypted; pass nil
// otherwise.
func (s *Service) Rollback(decrypt DecryptionContext) (*RollbackResult, error) {
	changes, err := s.journal.ListRuleChanges(RuleID)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	if len(changes) == 0 {
		return &RollbackResult{Detail: "no recorded changes to roll back"}, nil
	}

	// ListRuleChanges returns events ordered by Seq descending, which is
	// exactly reverse replay order.
	for _, ch := range changes {
		switch ch.Event.Type {
		case EventFileReplace:
			if err := s.revertFileReplacement(ch, decrypt); err != nil {
				return nil, err
			}
		case EventPermChange:
			if err := s.revertPermChange(ch); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("journal entry %s has unknown type %q", ch.Event.ID, ch.Event.Type)
		}
	}

	if err := s.journal.ClearRuleChanges(RuleID); err != nil {
		return nil, fmt.Errorf("clearing replayed journal entries: %w", err)
	}

	s.logger.Info("rollback complete", "reverted", len(changes))
	return &RollbackResult{
		Reverted: len(changes),
		Detail:   fmt.Sprintf("reverted %d change(s)", len(changes)),
	}, nil
}

func (s *Service) revertFileReplacement(ch *RecordedChange, decrypt DecryptionContext) error {
	fc := ch.File
	if fc == nil {
		return fmt.Errorf("journal entry %s is missing its file payload", ch.Event.ID)
	}

	var content bytes.Buffer
	if fc.EncryptedChecksum != "" {
		if decrypt == nil {
			return fmt.Errorf("snapshot for %s is encrypted but no passphrase was provided", fc.Path)
		}
		var cipher bytes.Buffer
		if err := s.vault.GetContent(fc.EncryptedChecksum, &cipher); err != nil {
			return fmt.Errorf("retrieving snapshot from vault: %w", err)
		}
		if err := decrypt.Decrypt(&cipher, &content); err != nil {
			return fmt.Errorf("decrypting snapshot: %w", err)
		}
	} else {
		if err := s.vault.GetContent(fc.Checksum, &content); err != nil {
			return fmt.Errorf("retrieving snapshot from vault: %w", err)
		}
	}

	if got := sha256Hex(content.Bytes()); got != fc.Checksum {
		return fmt.Errorf("snapshot for %s is corrupt: checksum %s, want %s", fc.Path, got, fc.Checksum)
	}

	tmpPath, err := s.fsys.WriteTemp(fc.Path, content.Bytes(), fc.Mode)
	if err != nil {
		return fmt.Errorf("writing restored content for %s: %w", fc.Path, err)
	}
	if err := s.fsys.Rename(tmpPath, fc.Path); err != nil {
		s.fsys.Remove(tmpPath)
		return fmt.Errorf("restoring %s: %w", fc.Path, err)
	}
	if err := s.fsys.Chown(fc.Path, fc.UID, fc.GID); err != nil {
		return fmt.Errorf("restoring ownership of %s: %w", fc.Path, err)
	}
	if err := s.fsys.Chmod(fc.Path, fc.Mode); err != nil {
		return fmt.Errorf("restoring mode of %s: %w", fc.Path, err)
	}
	s.fsys.RestoreLabel(fc.Path)

	s.logger.Info("file replacement reverted", "path", fc.Path, "checksum", fc.Checksum)
	return nil
}

func (s *Service) revertPermChange(ch *RecordedChange) error {
	pc := ch.Perms
	if pc == nil {
		return fmt.Errorf("journal entry %s is missing its permission payload", ch.Event.ID)
	}
	if err := s.fsys.Chown(pc.Path, pc.PriorUID, pc.PriorGID); err != nil {
		return fmt.Errorf("restoring ownership of %s: %w", pc.Path, err)
	}
	if err := s.fsys.Chmod(pc.Path, pc.PriorMode); err != nil {
		return fmt.Errorf("restoring mode of %s: %w", pc.Path, err)
	}
	s.logger.Info("permission change reverted", "path", pc.Path, "mode", pc.PriorMode.String())
	return nil
}
