package rule

import "io/fs"

// FileState is the ownership and mode of a file as observed on disk.
type FileState struct {
	Mode fs.FileMode
	UID  int
	GID  int
}

// FileSystem abstracts the file operations the rule performs so the core is
// testable without touching /etc. All write paths go through
// WriteTemp + Rename: the rule never rewrites the account database in place.
type FileSystem interface {
	// ReadFile returns the full content of the file.
	ReadFile(path string) ([]byte, error)

	// Stat returns the file's current ownership and permission bits.
	Stat(path string) (FileState, error)

	// WriteTemp writes data to a fresh temporary file in the same directory
	// as path (same filesystem, so the later rename is atomic) and returns
	// the temporary file's name. The data is synced before return.
	WriteTemp(path string, data []byte, mode fs.FileMode) (string, error)

	// Rename atomically replaces newpath with oldpath.
	Rename(oldpath, newpath string) error

	// Chmod sets the file's permission bits.
	Chmod(path string, mode fs.FileMode) error

	// Chown sets the file's owner and group.
	Chown(path string, uid, gid int) error

	// Remove deletes a file. Used to clean up abandoned temp files.
	Remove(path string) error

	// RestoreLabel resets the platform security label (SELinux context) on
	// the file. Best-effort: failures are not surfaced.
	RestoreLabel(path string)
}
