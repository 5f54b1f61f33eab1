package rule_test

import (
	"bytes"
	"strings"
	"testing"

	"bsa-go/internal/rule"
	"bsa-go/internal/testutil"
)

func TestRollback_NothingRecorded(t *testing.T) {
	svc, _, _, _ := newTestService(t, rule.Settings{Enabled: true})

	res, err := svc.Rollback(nil)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if res.Reverted != 0 {
		t.Errorf("Rollback() reverted = %d, want 0", res.Reverted)
	}
}

func TestRollback_RestoresContentAndPermissions(t *testing.T) {
	svc, fsys, journal, _ := newTestService(t, rule.Settings{Enabled: true})

	original := []byte(strings.Join([]string{
		"root:x:0:0:root:/root:/bin/bash",
		"daemon:x:1:1:daemon:/usr/sbin:/bin/sh",
	}, "\n") + "\n")
	// Non-baseline state: fix corrects it, rollback must put it back.
	fsys.AddFileWithState(passwdPath, original, 0600, 12, 34)

	if _, err := svc.Fix(); err != nil {
		t.Fatalf("Fix() error = %v", err)
	}

	fixed, _ := fsys.ReadFile(passwdPath)
	if bytes.Equal(fixed, original) {
		t.Fatal("Fix() did not modify the file")
	}

	res, err := svc.Rollback(nil)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	// One permission correction plus one file replacement.
	if res.Reverted != 2 {
		t.Errorf("Rollback() reverted = %d, want 2", res.Reverted)
	}

	data, _ := fsys.ReadFile(passwdPath)
	if !bytes.Equal(data, original) {
		t.Errorf("file after rollback =\n%s\nwant:\n%s", data, original)
	}

	state, _ := fsys.Stat(passwdPath)
	if state.Mode != 0600 || state.UID != 12 || state.GID != 34 {
		t.Errorf("file state after rollback = %o %d:%d, want 0600 12:34",
			state.Mode, state.UID, state.GID)
	}

	// Replayed entries are cleared; a second rollback is a no-op.
	changes, _ := journal.ListRuleChanges(rule.RuleID)
	if len(changes) != 0 {
		t.Errorf("journal has %d entries after rollback, want 0", len(changes))
	}
	res, err = svc.Rollback(nil)
	if err != nil {
		t.Fatalf("second Rollback() error = %v", err)
	}
	if res.Reverted != 0 {
		t.Errorf("second Rollback() reverted = %d, want 0", res.Reverted)
	}
}

func TestRollback_Encrypted(t *testing.T) {
	settings := rule.Settings{Enabled: true, PasswdPath: passwdPath}
	fsys := testutil.NewMockFileSystem()
	journal := testutil.NewTestJournal(t)
	vault := testutil.NewTestVault()
	encryptor := testutil.NewTestEncryptor()

	svc := rule.NewService(settings, fsys, journal, vault, encryptor,
		rule.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

	original := []byte("daemon:x:1:1:daemon:/usr/sbin:/bin/sh\n")
	fsys.AddFile(passwdPath, original)

	if _, err := svc.Fix(); err != nil {
		t.Fatalf("Fix() error = %v", err)
	}

	// Without a decryption context the encrypted snapshot cannot be restored.
	if _, err := svc.Rollback(nil); err == nil {
		t.Fatal("Rollback(nil) error = nil, want missing passphrase error")
	}

	decrypt, err := encryptor.Unlock("passphrase")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	res, err := svc.Rollback(decrypt)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if res.Reverted != 1 {
		t.Errorf("Rollback() reverted = %d, want 1", res.Reverted)
	}

	data, _ := fsys.ReadFile(passwdPath)
	if !bytes.Equal(data, original) {
		t.Errorf("file after rollback =\n%s\nwant:\n%s", data, original)
	}
}

func TestRollback_CorruptSnapshot(t *testing.T) {
	svc, fsys, journal, vault := newTestService(t, rule.Settings{Enabled: true})

	fsys.AddFile(passwdPath, []byte("daemon:x:1:1:daemon:/usr/sbin:/bin/sh\n"))
	if _, err := svc.Fix(); err != nil {
		t.Fatalf("Fix() error = %v", err)
	}

	changes, err := journal.ListRuleChanges(rule.RuleID)
	if err != nil || len(changes) != 1 || changes[0].File == nil {
		t.Fatalf("journal = %+v, err = %v, want one file replacement", changes, err)
	}

	// Overwrite the snapshot with garbage under the recorded checksum.
	garbage := []byte("not the original content\n")
	if err := vault.PutContent(changes[0].File.Checksum, bytes.NewReader(garbage), int64(len(garbage))); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	if _, err := svc.Rollback(nil); err == nil {
		t.Fatal("Rollback() error = nil, want checksum mismatch")
	} else if !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("Rollback() error = %v, want corrupt snapshot", err)
	}
}
