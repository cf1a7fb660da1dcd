package credentials

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/icpep-se/certmailer/pkg/config"
)

// keyringService is the service name under which app passwords are stored
// in the OS keyring; the account is the sender address.
const keyringService = "certmailer"

// Resolve returns the app password for the configured credential source.
// A missing credential is a configuration error: the caller aborts before
// any send is attempted.
func Resolve(cfg *config.Config) (string, error) {
	switch cfg.CredentialSource {
	case config.CredentialSourceConfig:
		if cfg.AppPassword == "" {
			return "", fmt.Errorf("app_password not set in config")
		}
		return cfg.AppPassword, nil
	case config.CredentialSourceEnv:
		val := os.Getenv(cfg.AppPasswordEnv)
		if val == "" {
			return "", fmt.Errorf("environment variable %s is empty or unset", cfg.AppPasswordEnv)
		}
		return val, nil
	case config.CredentialSourceKeyring:
		val, err := keyring.Get(keyringService, cfg.SenderEmail)
		if err != nil {
			return "", fmt.Errorf("keyring lookup for %s failed: %w", cfg.SenderEmail, err)
		}
		return val, nil
	default:
		return "", fmt.Errorf("unknown credential_source %q", cfg.CredentialSource)
	}
}

// Store saves the app password for senderEmail in the OS keyring.
func Store(senderEmail, password string) error {
	if err := keyring.Set(keyringService, senderEmail, password); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}
	return nil
}

// Delete removes the stored app password for senderEmail.
func Delete(senderEmail string) error {
	if err := keyring.Delete(keyringService, senderEmail); err != nil {
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}
