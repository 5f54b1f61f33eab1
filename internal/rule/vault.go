package rule

import "io"

// Vault stores prior-content snapshots referenced by the journal, keyed by
// SHA-256 checksum. Backends range from in-memory (tests) to S3 (off-host
// evidence retention).
type Vault interface {
	// PutContent stores content identified by its checksum.
	// The operation is idempotent: storing the same checksum multiple times
	// is safe. size is the number of bytes that will be read from r.
	PutContent(checksum string, r io.Reader, size int64) error

	// GetContent retrieves content by checksum and writes it to w.
	GetContent(checksum string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
