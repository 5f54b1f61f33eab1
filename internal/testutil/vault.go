package testutil

import (
	"bsa-go/internal/rule"
	"bsa-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() rule.Vault {
	return vault.NewMemoryVault("test-vault")
}
