package testutil

import (
	"bsa-go/internal/encryption"
	"bsa-go/internal/rule"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() rule.Encryptor {
	return encryption.NewTestEncryptor()
}
