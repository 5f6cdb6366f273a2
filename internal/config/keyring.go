package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "stackmates"

	// KeyringGitHubTokenItem is the key for the GitHub token
	KeyringGitHubTokenItem = "github_token"
)

// KeyringManager handles secure token storage in the OS keychain
type KeyringManager struct {
	logger logrus.FieldLogger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager(logger logrus.FieldLogger) *KeyringManager {
	return &KeyringManager{
		logger: logger.WithField("component", "keyring"),
	}
}

// GetGitHubToken retrieves the GitHub token from the OS keychain.
// A missing entry is not an error.
func (km *KeyringManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.WithError(err).Error("failed to get GitHub token from keychain")
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("github token retrieved from keychain")
	return token, nil
}

// SetGitHubToken stores the GitHub token in the OS keychain
func (km *KeyringManager) SetGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("github token cannot be empty")
	}

	err := keyring.Set(KeyringService, KeyringGitHubTokenItem, token)
	if err != nil {
		km.logger.WithError(err).Error("failed to save GitHub token to keychain")
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.WithField("service", KeyringService).Debug("github token saved to keychain")
	return nil
}

// DeleteGitHubToken removes the GitHub token from the OS keychain
func (km *KeyringManager) DeleteGitHubToken() error {
	err := keyring.Delete(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.WithError(err).Error("failed to delete GitHub token from keychain")
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Debug("github token deleted from keychain")
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems where no secret service is running.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")

	// "not found" means the keychain answered
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.WithError(err).Debug("keychain not available")
		return false
	}

	return true
}

// MaskToken masks a token for display.
// Shows first 4 chars and last 4 chars: "ghp_...wxyz"
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", token[:4], token[len(token)-4:])
}
