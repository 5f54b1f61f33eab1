package rule

import (
	"io/fs"

	"bsa-go/internal/passwd"
)

// Rule identity, carried on every journal entry.
const (
	RuleID   = 40
	RuleName = "BlockSystemAccounts"
)

// Baseline ownership and mode enforced on the account database before and
// after a replacement.
const (
	BaselineMode fs.FileMode = 0o644
	BaselineUID              = 0
	BaselineGID              = 0
)

// Settings are the rule's tunables, owned by the surrounding configuration
// and consumed read-only here.
type Settings struct {
	// PasswdPath is the account database to audit, conventionally /etc/passwd.
	PasswdPath string
	// Enabled gates whether Fix performs any mutation. Report always runs.
	Enabled bool
	// UIDThreshold is the system/human account boundary.
	UIDThreshold int
}

// Service is the block-system-accounts rule: it audits the account database
// (Report), remediates login-capable system accounts through a journaled
// atomic file replacement (Fix), and replays the journal in reverse
// (Rollback).
type Service struct {
	settings  Settings
	fsys      FileSystem
	journal   Journal
	vault     Vault
	encryptor Encryptor // nil: snapshots stored in plaintext
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates the rule service with the provided collaborators.
// encryptor may be nil when snapshot encryption is not configured.
func NewService(settings Settings, fsys FileSystem, journal Journal, vault Vault, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *Service {
	if settings.UIDThreshold <= 0 {
		settings.UIDThreshold = passwd.DefaultUIDThreshold
	}
	return &Service{
		settings:  settings,
		fsys:      fsys,
		journal:   journal,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}
