// Package batch runs the sequential send loop: for each recipient it
// renders the template, resolves an optional certificate attachment,
// sends over a shared SMTP session and records the outcome. A transport
// failure for one recipient never aborts the rest of the batch.
package batch
