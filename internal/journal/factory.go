package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"bsa-go/internal/config"
	"bsa-go/internal/journal/migrations"
	"bsa-go/internal/rule"
)

// NewJournalFromConfig creates a Journal implementation based on the journal config type.
// An in-memory journal is always migrated to the latest schema; a file-backed
// journal is migrated on first creation.
func NewJournalFromConfig(cfg config.JournalConfig, hostID string) (rule.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		path := filepath.Join(cfg.DataDir, hostID+".db")
		_, statErr := os.Stat(path)
		j, err := NewSQLiteJournal(path)
		if err != nil {
			return nil, err
		}
		if os.IsNotExist(statErr) {
			if err := migrations.MigrateUp(j.db); err != nil {
				j.Close()
				return nil, fmt.Errorf("initializing journal schema: %w", err)
			}
		}
		return j, nil
	case "memory":
		j, err := NewSQLiteJournal(":memory:")
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(j.db); err != nil {
			j.Close()
			return nil, fmt.Errorf("initializing journal schema: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
