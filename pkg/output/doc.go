// Package output renders run summaries as a table, JSON or YAML.
package output
