package testutil

import (
	"fmt"
	"io/fs"

	"bsa-go/internal/rule"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content []byte
	Mode    fs.FileMode
	UID     int
	GID     int
}

// MockFileSystem is an in-memory filesystem for testing.
// It records mutations so tests can assert on the exact sequence of
// rename, chmod and chown calls a fix performs.
type MockFileSystem struct {
	files      map[string]*MockFile
	tmpCounter int
	temps      []string

	WriteTempErr error // when set, WriteTemp fails with this error
	RenameErr    error // when set, Rename fails with this error

	Renames   [][2]string
	Removed   []string
	Relabeled []string
}

// NewMockFileSystem creates a new mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file owned by root:root with mode 0644.
func (m *MockFileSystem) AddFile(path string, content []byte) {
	m.files[path] = &MockFile{
		Content: content,
		Mode:    0644,
	}
}

// AddFileWithState adds a file with explicit mode and ownership.
func (m *MockFileSystem) AddFileWithState(path string, content []byte, mode fs.FileMode, uid, gid int) {
	m.files[path] = &MockFile{
		Content: content,
		Mode:    mode,
		UID:     uid,
		GID:     gid,
	}
}

// File returns the file at path, or nil if it does not exist.
func (m *MockFileSystem) File(path string) *MockFile {
	return m.files[path]
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return append([]byte(nil), file.Content...), nil
}

func (m *MockFileSystem) Stat(path string) (rule.FileState, error) {
	file, ok := m.files[path]
	if !ok {
		return rule.FileState{}, fmt.Errorf("file not found: %s", path)
	}
	return rule.FileState{Mode: file.Mode, UID: file.UID, GID: file.GID}, nil
}

func (m *MockFileSystem) WriteTemp(path string, data []byte, mode fs.FileMode) (string, error) {
	if m.WriteTempErr != nil {
		return "", m.WriteTempErr
	}
	m.tmpCounter++
	tmpPath := fmt.Sprintf("%s.tmp-%d", path, m.tmpCounter)
	m.files[tmpPath] = &MockFile{
		Content: append([]byte(nil), data...),
		Mode:    mode,
	}
	m.temps = append(m.temps, tmpPath)
	return tmpPath, nil
}

func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if m.RenameErr != nil {
		return m.RenameErr
	}
	file, ok := m.files[oldpath]
	if !ok {
		return fmt.Errorf("file not found: %s", oldpath)
	}
	delete(m.files, oldpath)
	m.files[newpath] = file
	m.Renames = append(m.Renames, [2]string{oldpath, newpath})
	return nil
}

func (m *MockFileSystem) Chmod(path string, mode fs.FileMode) error {
	file, ok := m.files[path]
	if !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	file.Mode = mode
	return nil
}

func (m *MockFileSystem) Chown(path string, uid, gid int) error {
	file, ok := m.files[path]
	if !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	file.UID = uid
	file.GID = gid
	return nil
}

func (m *MockFileSystem) Remove(path string) error {
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	delete(m.files, path)
	m.Removed = append(m.Removed, path)
	return nil
}

func (m *MockFileSystem) RestoreLabel(path string) {
	m.Relabeled = append(m.Relabeled, path)
}

// TempFiles returns the paths of temp files still present in the filesystem.
// After a successful fix every temp file has been renamed over the target;
// after a failed one the fix must have cleaned them up.
func (m *MockFileSystem) TempFiles() []string {
	var tmps []string
	for _, path := range m.temps {
		if _, ok := m.files[path]; ok {
			tmps = append(tmps, path)
		}
	}
	return tmps
}

// Compile-time check
var _ rule.FileSystem = (*MockFileSystem)(nil)
