// Package cmd implements the cobra command tree for the certmailer CLI,
// including single sends, bulk certificate runs, meeting invitations,
// configuration management, and shell completion.
package cmd
