package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"bsa-go/internal/journal/migrations"
	"bsa-go/internal/rule"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements the rule.Journal interface using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal creates a new SQLite journal connection.
// path can be a file path or ":memory:" for an in-memory journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// NewSQLiteJournalFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteJournalFromDB(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured
// SQLite connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward
	// compatibility); cascade deletes from change_events depend on them.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Operation history

func (j *SQLiteJournal) CreateOperation(operation, parameters string) (*rule.Operation, error) {
	res, err := j.db.Exec(
		`INSERT INTO rule_operations (operation, parameters, started_at) VALUES (?, ?, ?)`,
		operation, parameters, time.Now())
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return j.getOperation(id)
}

func (j *SQLiteJournal) FinishOperation(id int64, status string) error {
	_, err := j.db.Exec(
		`UPDATE rule_operations SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) ListOperations(limit int) ([]*rule.Operation, error) {
	rows, err := j.db.Query(
		`SELECT id, operation, parameters, started_at, finished_at, status
		 FROM rule_operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*rule.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (j *SQLiteJournal) getOperation(id int64) (*rule.Operation, error) {
	row := j.db.QueryRow(
		`SELECT id, operation, parameters, started_at, finished_at, status
		 FROM rule_operations WHERE id = ?`, id)
	op, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("operation %d not found", id)
		}
		return nil, err
	}
	return op, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(r rowScanner) (*rule.Operation, error) {
	var op rule.Operation
	var finished sql.NullTime
	if err := r.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finished, &op.Status); err != nil {
		return nil, fmt.Errorf("scanning operation: %w", err)
	}
	if finished.Valid {
		op.FinishedAt = finished.Time
		op.Finished = true
	}
	return &op, nil
}

// Undo log

func (j *SQLiteJournal) ClearRuleChanges(ruleID int) error {
	// file_changes and perm_changes rows cascade.
	_, err := j.db.Exec(`DELETE FROM change_events WHERE rule_id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("clearing rule changes: %w", err)
	}
	return nil
}

// RecordFileReplacement records a file-replacement event and its payload
// atomically: a journal entry must never exist half-written.
func (j *SQLiteJournal) RecordFileReplacement(ev rule.ChangeEvent, fc rule.FileChange) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(tx, ev); err != nil {
		return err
	}

	var enc sql.NullString
	if fc.EncryptedChecksum != "" {
		enc = sql.NullString{String: fc.EncryptedChecksum, Valid: true}
	}
	_, err = tx.Exec(
		`INSERT INTO file_changes (event_id, filepath, checksum, encrypted_checksum, size, mode, uid, gid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, fc.Path, fc.Checksum, enc, fc.Size, uint32(fc.Mode), fc.UID, fc.GID)
	if err != nil {
		return fmt.Errorf("recording file change: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RecordPermChange records a permission-change event and its payload atomically.
func (j *SQLiteJournal) RecordPermChange(ev rule.ChangeEvent, pc rule.PermChange) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEvent(tx, ev); err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO perm_changes (event_id, filepath, prior_mode, prior_uid, prior_gid)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.ID, pc.Path, uint32(pc.PriorMode), pc.PriorUID, pc.PriorGID)
	if err != nil {
		return fmt.Errorf("recording permission change: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertEvent(tx *sql.Tx, ev rule.ChangeEvent) error {
	var opID sql.NullInt64
	if ev.OperationID != 0 {
		opID = sql.NullInt64{Int64: ev.OperationID, Valid: true}
	}
	_, err := tx.Exec(
		`INSERT INTO change_events (id, operation_id, rule_id, seq, event_type, filepath, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, opID, ev.RuleID, ev.Seq, ev.Type, ev.Path, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording change event: %w", err)
	}
	return nil
}

// ListRuleChanges returns a rule's recorded changes ordered by seq
// descending, each event joined with its type-specific payload.
func (j *SQLiteJournal) ListRuleChanges(ruleID int) ([]*rule.RecordedChange, error) {
	rows, err := j.db.Query(
		`SELECT e.id, e.operation_id, e.rule_id, e.seq, e.event_type, e.filepath, e.created_at,
		        f.filepath, f.checksum, f.encrypted_checksum, f.size, f.mode, f.uid, f.gid,
		        p.filepath, p.prior_mode, p.prior_uid, p.prior_gid
		 FROM change_events e
		 LEFT JOIN file_changes f ON f.event_id = e.id
		 LEFT JOIN perm_changes p ON p.event_id = e.id
		 WHERE e.rule_id = ?
		 ORDER BY e.seq DESC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("listing rule changes: %w", err)
	}
	defer rows.Close()

	var changes []*rule.RecordedChange
	for rows.Next() {
		ch, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing rule changes: %w", err)
	}
	return changes, nil
}

func scanChange(r rowScanner) (*rule.RecordedChange, error) {
	var (
		ch    rule.RecordedChange
		opID  sql.NullInt64
		fPath sql.NullString
		fCS   sql.NullString
		fEnc  sql.NullString
		fSize sql.NullInt64
		fMode sql.NullInt64
		fUID  sql.NullInt64
		fGID  sql.NullInt64
		pPath sql.NullString
		pMode sql.NullInt64
		pUID  sql.NullInt64
		pGID  sql.NullInt64
	)
	err := r.Scan(
		&ch.Event.ID, &opID, &ch.Event.RuleID, &ch.Event.Seq, &ch.Event.Type, &ch.Event.Path, &ch.Event.CreatedAt,
		&fPath, &fCS, &fEnc, &fSize, &fMode, &fUID, &fGID,
		&pPath, &pMode, &pUID, &pGID)
	if err != nil {
		return nil, fmt.Errorf("scanning change event: %w", err)
	}
	if opID.Valid {
		ch.Event.OperationID = opID.Int64
	}
	if fPath.Valid {
		ch.File = &rule.FileChange{
			EventID:           ch.Event.ID,
			Path:              fPath.String,
			Checksum:          fCS.String,
			EncryptedChecksum: fEnc.String,
			Size:              fSize.Int64,
			Mode:              fs.FileMode(uint32(fMode.Int64)),
			UID:               int(fUID.Int64),
			GID:               int(fGID.Int64),
		}
	}
	if pPath.Valid {
		ch.Perms = &rule.PermChange{
			EventID:   ch.Event.ID,
			Path:      pPath.String,
			PriorMode: fs.FileMode(uint32(pMode.Int64)),
			PriorUID:  int(pUID.Int64),
			PriorGID:  int(pGID.Int64),
		}
	}
	return &ch, nil
}

// Path returns the journal file path (or ":memory:" for in-memory journals).
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckMigrations verifies the journal schema is up-to-date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(j.db)
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements the rule.Journal interface
var _ rule.Journal = (*SQLiteJournal)(nil)
