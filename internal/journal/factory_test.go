package journal

import (
	"testing"

	"bsa-go/internal/config"
)

func TestNewJournalFromConfig(t *testing.T) {
	t.Run("memory journal", func(t *testing.T) {
		cfg := config.JournalConfig{Type: "memory"}
		got, err := NewJournalFromConfig(cfg, "test-host-123")

		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("NewJournalFromConfig() returned nil")
		}
		got.Close()
	})

	t.Run("sqlite journal", func(t *testing.T) {
		cfg := config.JournalConfig{
			Type:    "sqlite",
			DataDir: t.TempDir(),
		}
		got, err := NewJournalFromConfig(cfg, "test-host-123")

		if err != nil {
			t.Fatalf("NewJournalFromConfig() unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("NewJournalFromConfig() returned nil")
		}

		// Fresh sqlite journal gets its schema applied.
		if err := got.(*SQLiteJournal).CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
		got.Close()
	})

	t.Run("sqlite journal without data_dir", func(t *testing.T) {
		cfg := config.JournalConfig{Type: "sqlite"}
		got, err := NewJournalFromConfig(cfg, "test-host-123")

		if err == nil {
			t.Error("NewJournalFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewJournalFromConfig() should return nil on error")
			got.Close()
		}
	})

	t.Run("unknown journal type", func(t *testing.T) {
		cfg := config.JournalConfig{Type: "papyrus"}
		_, err := NewJournalFromConfig(cfg, "test-host-123")
		if err == nil {
			t.Error("NewJournalFromConfig() expected error for unknown type, got nil")
		}
	})
}
