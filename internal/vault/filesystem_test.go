package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		root := filepath.Join(tmpDir, "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		// Check directories were created
		if _, err := os.Stat(filepath.Join(root, "content")); err != nil {
			t.Errorf("content directory not created: %v", err)
		}

		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := NewFileSystemVault("test", tmpDir)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutContent(t *testing.T) {
	tests := []struct {
		name     string
		checksum string
		data     string
		size     int64
		wantErr  bool
	}{
		{
			name:     "store content successfully",
			checksum: "abc123",
			data:     "hello world",
			size:     11,
			wantErr:  false,
		},
		{
			name:     "size mismatch",
			checksum: "def456",
			data:     "hello",
			size:     100,
			wantErr:  true,
		},
		{
			name:     "empty content",
			checksum: "empty",
			data:     "",
			size:     0,
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutContent(tt.checksum, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("PutContent() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				// No partial content should remain
				if _, err := os.Stat(filepath.Join(v.contentDir, tt.checksum)); err == nil {
					t.Error("content file exists after failed PutContent()")
				}
				return
			}

			var buf bytes.Buffer
			if err := v.GetContent(tt.checksum, &buf); err != nil {
				t.Fatalf("GetContent() error = %v", err)
			}
			if got := buf.String(); got != tt.data {
				t.Errorf("GetContent() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemVault_PutContentIdempotent(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	content := "same bytes"
	checksum := "cafebabe"

	for i := 0; i < 2; i++ {
		err := v.PutContent(checksum, strings.NewReader(content), int64(len(content)))
		if err != nil {
			t.Fatalf("PutContent() iteration %d error: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := v.GetContent(checksum, &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if got := buf.String(); got != content {
		t.Errorf("GetContent() = %q, want %q", got, content)
	}
}

func TestFileSystemVault_GetContentNotFound(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	var buf bytes.Buffer
	err = v.GetContent("nonexistent", &buf)
	if err == nil {
		t.Error("GetContent() expected error for nonexistent checksum, got nil")
	}
	if !strings.Contains(err.Error(), "content not found") {
		t.Errorf("GetContent() error = %v, want content not found", err)
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid vault", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v, want nil", err)
		}
	})

	t.Run("missing content directory", func(t *testing.T) {
		root := t.TempDir()
		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := os.RemoveAll(filepath.Join(root, "content")); err != nil {
			t.Fatalf("RemoveAll() error = %v", err)
		}

		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing content dir, got nil")
		}
	})
}
