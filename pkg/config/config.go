package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultSMTPHost is used when the config file does not name a mail host.
	DefaultSMTPHost = "smtp.gmail.com"
	// DefaultSMTPPort is the STARTTLS submission port.
	DefaultSMTPPort = 587
	// DefaultCertificatesDir is where certificate PDFs are looked up.
	DefaultCertificatesDir = "./certificates"
)

// Credential sources accepted in the credential_source field.
const (
	CredentialSourceConfig  = "config"
	CredentialSourceEnv     = "env"
	CredentialSourceKeyring = "keyring"
)

// Config is the full mailer configuration, loaded once at startup and
// passed explicitly to everything that needs it.
type Config struct {
	SenderEmail        string      `json:"sender_email" yaml:"sender_email"`
	SenderName         string      `json:"sender_name,omitempty" yaml:"sender_name,omitempty"`
	AppPassword        string      `json:"app_password,omitempty" yaml:"app_password,omitempty"`
	AppPasswordEnv     string      `json:"app_password_env,omitempty" yaml:"app_password_env,omitempty"`
	CredentialSource   string      `json:"credential_source,omitempty" yaml:"credential_source,omitempty"`
	SMTPHost           string      `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty"`
	SMTPPort           int         `json:"smtp_port,omitempty" yaml:"smtp_port,omitempty"`
	InsecureSkipVerify bool        `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	Recipients         []Recipient `json:"recipients,omitempty" yaml:"recipients,omitempty"`
	CompanyInfo        CompanyInfo `json:"company_info,omitempty" yaml:"company_info,omitempty"`
	LogoURL            string      `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	CertificatesDir    string      `json:"certificates_dir,omitempty" yaml:"certificates_dir,omitempty"`
	SendIntervalMs     int         `json:"send_interval_ms,omitempty" yaml:"send_interval_ms,omitempty"`
}

// CompanyInfo holds the display fields substituted into mail templates.
type CompanyInfo struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Recipient is one entry of the recipients list. In the config file it may
// be either an object or a bare address string.
type Recipient struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Email          string `json:"email" yaml:"email"`
	CertificateURL string `json:"certificate_url,omitempty" yaml:"certificate_url,omitempty"`
}

// UnmarshalJSON accepts both {"name":...,"email":...} objects and plain
// "user@example.com" strings.
func (r *Recipient) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var addr string
		if err := json.Unmarshal(data, &addr); err != nil {
			return err
		}
		r.Email = addr
		return nil
	}
	type recipient Recipient
	var obj recipient
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Recipient(obj)
	return nil
}

// DisplayName returns the configured name, falling back to the local part
// of the address so templates always have something to greet with.
func (r Recipient) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if at := strings.Index(r.Email, "@"); at > 0 {
		return r.Email[:at]
	}
	return r.Email
}

// DefaultConfig returns a config with host, port and paths filled in.
func DefaultConfig() Config {
	return Config{
		SMTPHost:         DefaultSMTPHost,
		SMTPPort:         DefaultSMTPPort,
		CredentialSource: CredentialSourceConfig,
		CertificatesDir:  DefaultCertificatesDir,
	}
}

// Load reads and parses the JSON config file at path and applies defaults
// for fields the file leaves empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes cfg as indented JSON, creating the parent directory with
// restrictive permissions since the file may carry a credential.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, append(content, '\n'), 0o600)
}

func (c *Config) applyDefaults() {
	if c.SMTPHost == "" {
		c.SMTPHost = DefaultSMTPHost
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = DefaultSMTPPort
	}
	if c.CredentialSource == "" {
		c.CredentialSource = CredentialSourceConfig
	}
	if c.CertificatesDir == "" {
		c.CertificatesDir = DefaultCertificatesDir
	}
}

// Validate performs the presence checks every send mode needs: a sender
// address and a usable credential source. Recipient checks are separate
// because single-send mode runs without a recipient list.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SenderEmail) == "" {
		return errors.New("sender_email is required")
	}
	switch c.CredentialSource {
	case CredentialSourceConfig:
		if c.AppPassword == "" {
			return errors.New("app_password is required when credential_source is config")
		}
	case CredentialSourceEnv:
		if c.AppPasswordEnv == "" {
			return errors.New("app_password_env is required when credential_source is env")
		}
	case CredentialSourceKeyring:
		// Resolved at send time against the OS keyring.
	default:
		return fmt.Errorf("unknown credential_source %q (want config, env or keyring)", c.CredentialSource)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port %d out of range", c.SMTPPort)
	}
	return nil
}

// RequireRecipients fails when the recipient list is empty or any entry is
// missing an address. Bulk modes call this in addition to Validate.
func (c *Config) RequireRecipients() error {
	if len(c.Recipients) == 0 {
		return errors.New("at least one recipient is required")
	}
	for i, r := range c.Recipients {
		if strings.TrimSpace(r.Email) == "" {
			return fmt.Errorf("recipient %d has no email address", i)
		}
	}
	return nil
}
