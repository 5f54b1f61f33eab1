package encryption

import (
	"fmt"

	"bsa-go/internal/config"
	"bsa-go/internal/rule"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// A "none" or empty type returns a nil Encryptor, meaning snapshots are
// stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (rule.Encryptor, error) {
	switch cfg.Type {
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
