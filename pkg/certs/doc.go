// Package certs matches certificate PDF files to recipients by naming
// convention: the recipient's normalized local part plus
// "_certificate.pdf". The match is best-effort, never guaranteed.
package certs
