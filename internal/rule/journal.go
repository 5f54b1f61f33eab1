package rule

import (
	"io/fs"
	"time"
)

// Change event types recorded in the journal.
const (
	EventFileReplace = "replace"
	EventPermChange  = "perms"
)

// Operation tracks one CLI invocation that may mutate the system.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt time.Time
	Finished   bool
	Status     string
}

// ChangeEvent is one step of an undo log. Events belonging to the same fix
// share an operation and are ordered by Seq; rollback replays them in
// reverse with the compensating action for their type.
type ChangeEvent struct {
	ID          string
	OperationID int64
	RuleID      int
	Seq         int64
	Type        string
	Path        string
	CreatedAt   time.Time
}

// FileChange describes a file replacement: the prior content lives in the
// vault under Checksum (or EncryptedChecksum when the snapshot was
// encrypted), and the prior ownership/mode are recorded for restore.
type FileChange struct {
	EventID           string
	Path              string
	Checksum          string
	EncryptedChecksum string // empty when the snapshot is stored in plaintext
	Size              int64
	Mode              fs.FileMode
	UID               int
	GID               int
}

// PermChange describes an ownership/mode correction made before a file
// replacement, so rollback can restore the prior permissions.
type PermChange struct {
	EventID   string
	Path      string
	PriorMode fs.FileMode
	PriorUID  int
	PriorGID  int
}

// RecordedChange pairs a change event with its type-specific payload.
// Exactly one of File and Perms is non-nil, matching Event.Type.
type RecordedChange struct {
	Event ChangeEvent
	File  *FileChange
	Perms *PermChange
}

// Journal persists the undo-capable change history. Implementations must
// write each event durably before the caller performs the change it
// describes: a crash mid-fix must still leave a recoverable journal.
type Journal interface {
	// Operation history

	// CreateOperation records the start of a mutating CLI invocation.
	CreateOperation(operation, parameters string) (*Operation, error)

	// FinishOperation stamps the operation's end time and outcome status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// Undo log

	// ClearRuleChanges discards all recorded change events for a rule so
	// that only the latest fix attempt is replayable.
	ClearRuleChanges(ruleID int) error

	// RecordFileReplacement records a file-replacement event and its payload
	// in a single transaction.
	RecordFileReplacement(ev ChangeEvent, fc FileChange) error

	// RecordPermChange records a permission-change event and its payload in
	// a single transaction.
	RecordPermChange(ev ChangeEvent, pc PermChange) error

	// ListRuleChanges returns a rule's recorded changes ordered by Seq
	// descending, ready for reverse replay.
	ListRuleChanges(ruleID int) ([]*RecordedChange, error)

	// Close closes the underlying store.
	Close() error
}
