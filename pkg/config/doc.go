// Package config loads and validates the certmailer JSON configuration:
// sender identity, credential source, SMTP endpoint, recipient list,
// company display fields and certificate lookup settings.
package config
