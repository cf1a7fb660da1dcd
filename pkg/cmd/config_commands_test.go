package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/icpep-se/certmailer/pkg/config"
	"github.com/icpep-se/certmailer/pkg/credentials"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: buf})

	root.SetArgs([]string{"config", "init", "--sender-email", "sender@example.com", "--sender-name", "ICPEP.se"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Initialized config at")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", cfg.SenderEmail)
	assert.Equal(t, "ICPEP.se", cfg.SenderName)
	assert.Equal(t, config.DefaultSMTPHost, cfg.SMTPHost)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: &bytes.Buffer{}})
	root.SetArgs([]string{"config", "init", "--sender-email", "sender@example.com"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInitForceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	root := NewRootCommand(Config{ConfigPath: path, OutputWriter: &bytes.Buffer{}})
	root.SetArgs([]string{"config", "init", "--sender-email", "sender@example.com", "--force"})
	require.NoError(t, root.Execute())
}

func TestConfigViewRedactsPassword(t *testing.T) {
	root, buf, _ := newTestRoot(t, testConfig())
	root.SetArgs([]string{"config", "view"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "sender@example.com")
	assert.Contains(t, out, "<redacted>")
	assert.NotContains(t, out, "app-password")
}

func TestConfigSetPasswordFlag(t *testing.T) {
	keyring.MockInit()
	root, buf, _ := newTestRoot(t, testConfig())
	root.SetArgs([]string{"config", "set-password", "--password", "new-secret"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Password stored for sender@example.com")

	cfg := testConfig()
	cfg.AppPassword = ""
	cfg.CredentialSource = config.CredentialSourceKeyring
	got, err := credentials.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, "new-secret", got)
}

func TestConfigSetPasswordPrompt(t *testing.T) {
	keyring.MockInit()
	root, _, _ := newTestRoot(t, testConfig())
	root.SetIn(strings.NewReader("prompted-secret\n"))
	root.SetArgs([]string{"config", "set-password"})
	require.NoError(t, root.Execute())

	cfg := testConfig()
	cfg.AppPassword = ""
	cfg.CredentialSource = config.CredentialSourceKeyring
	got, err := credentials.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, "prompted-secret", got)
}

func TestConfigSetPasswordNonInteractiveNeedsFlag(t *testing.T) {
	root, _, _ := newTestRoot(t, testConfig())
	root.SetArgs([]string{"config", "set-password", "--non-interactive"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")
}

func TestCompletionBash(t *testing.T) {
	root, buf, _ := newTestRoot(t, testConfig())
	root.SetArgs([]string{"completion", "bash"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "bash completion")
}

func TestCompletionUnsupportedShell(t *testing.T) {
	root, _, _ := newTestRoot(t, testConfig())
	root.SetArgs([]string{"completion", "tcsh"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shell")
}
