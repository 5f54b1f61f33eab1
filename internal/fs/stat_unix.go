//go:build unix

package fs

import (
	"os"
	"syscall"

	"bsa-go/internal/rule"
)

// Stat returns the permission mode and ownership of the file at path.
func (m *OSFileSystem) Stat(path string) (rule.FileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return rule.FileState{}, err
	}

	state := rule.FileState{Mode: info.Mode().Perm()}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		state.UID = int(st.Uid)
		state.GID = int(st.Gid)
	}
	return state, nil
}
