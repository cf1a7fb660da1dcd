// Package credentials resolves the sender's app password from the
// configured source: the config file itself, an environment variable, or
// the OS keyring.
package credentials
