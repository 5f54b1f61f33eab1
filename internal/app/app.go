package app

import (
	"fmt"
	"os"
	"time"

	"bsa-go/internal/config"
	"bsa-go/internal/encryption"
	"bsa-go/internal/fs"
	"bsa-go/internal/journal"
	"bsa-go/internal/rule"
	"bsa-go/internal/vault"
)

// App is the application layer between the CLI and the rule service.
// It constructs all dependencies from config, exposes the high-level
// report/fix/rollback operations, and manages the journal lifecycle on Close.
type App struct {
	cfg       *config.Config
	journal   rule.Journal
	vault     rule.Vault
	fsys      rule.FileSystem
	encryptor rule.Encryptor
	service   *rule.Service
	op        *RuleOperation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Report", "Fix").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	fsys := fs.NewOSFileSystem()

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	j, err := journal.NewJournalFromConfig(cfg.Journal, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	if sj, ok := j.(*journal.SQLiteJournal); ok {
		if err := sj.CheckMigrations(); err != nil {
			j.Close()
			return nil, fmt.Errorf("journal schema out of date: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	settings := rule.Settings{
		PasswdPath:   cfg.Rule.PasswdPath,
		Enabled:      cfg.Rule.Enabled,
		UIDThreshold: cfg.Rule.UIDThreshold,
	}
	svc := rule.NewService(settings, fsys, j, v, enc,
		&slogAdapter{l: logger}, rule.RealClock{}, rule.UUIDGenerator{})

	return &App{
		cfg:       cfg,
		journal:   j,
		vault:     v,
		fsys:      fsys,
		encryptor: enc,
		service:   svc,
		op:        NewRuleOperation(operation, cfg.Rule.PasswdPath),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the journal, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	jOp, err := a.journal.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = jOp.ID
	return nil
}

// fail marks the current operation as errored and returns err unchanged.
func (a *App) fail(err error) error {
	a.op.Status = "error"
	return err
}

// Report audits the account database without modifying anything.
func (a *App) Report() (*rule.Verdict, error) {
	return a.service.Report()
}

// Fix remediates login-capable system accounts in the account database.
func (a *App) Fix() (*rule.FixResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	res, err := a.service.Fix()
	if err != nil {
		return nil, a.fail(err)
	}
	return res, nil
}

// Rollback undoes the most recent fix. decrypt is required when snapshots
// were stored encrypted; pass nil otherwise.
func (a *App) Rollback(decrypt rule.DecryptionContext) (*rule.RollbackResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	res, err := a.service.Rollback(decrypt)
	if err != nil {
		return nil, a.fail(err)
	}
	return res, nil
}

// EncryptionConfigured reports whether vault snapshots are encrypted and a
// passphrase will be required to roll back.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// Unlock decrypts the private key with the passphrase, returning a context
// for decrypting vaulted snapshots during rollback.
func (a *App) Unlock(passphrase string) (rule.DecryptionContext, error) {
	if a.encryptor == nil {
		return nil, fmt.Errorf("encryption is not configured")
	}
	return a.encryptor.Unlock(passphrase)
}

// SetupEncryption generates the age key pair, protecting the private key
// with the passphrase.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not configured")
	}
	return a.encryptor.Setup(passphrase)
}

// ValidateVault verifies the configured vault backend is reachable.
func (a *App) ValidateVault() error {
	return a.vault.ValidateSetup()
}

// History returns the most recent rule operations.
func (a *App) History(limit int) ([]*rule.Operation, error) {
	return a.journal.ListOperations(limit)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.journal.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.journal.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
