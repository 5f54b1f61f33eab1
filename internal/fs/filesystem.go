package fs

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"bsa-go/internal/rule"
)

// OSFileSystem is the real filesystem implementation of rule.FileSystem.
// It performs actual filesystem operations using the os package.
type OSFileSystem struct{}

// NewOSFileSystem creates a new filesystem that operates on the real host.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// ReadFile reads the entire contents of the file at path.
func (m *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteTemp writes data to a temporary file in the same directory as path
// and returns the temporary file's name. The file is chmodded to mode and
// synced to stable storage before the function returns, so a subsequent
// Rename replaces the target atomically.
func (m *OSFileSystem) WriteTemp(path string, data []byte, mode fs.FileMode) (string, error) {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		return "", fmt.Errorf("setting temp file mode: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	success = true
	return tmpPath, nil
}

// Rename atomically replaces newpath with oldpath.
func (m *OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Chmod changes the permission mode of the file at path.
func (m *OSFileSystem) Chmod(path string, mode fs.FileMode) error {
	return os.Chmod(path, mode)
}

// Chown changes the ownership of the file at path.
func (m *OSFileSystem) Chown(path string, uid, gid int) error {
	return os.Chown(path, uid, gid)
}

// Remove deletes the file at path.
func (m *OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// RestoreLabel resets the SELinux security context of the file at path.
// It is a no-op on hosts without restorecon; errors are ignored since
// label restoration is best-effort.
func (m *OSFileSystem) RestoreLabel(path string) {
	restorecon, err := exec.LookPath("restorecon")
	if err != nil {
		return
	}
	_ = exec.Command(restorecon, path).Run()
}

// Compile-time check that OSFileSystem implements rule.FileSystem interface
var _ rule.FileSystem = (*OSFileSystem)(nil)
