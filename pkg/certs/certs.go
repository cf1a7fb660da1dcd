package certs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileSuffix is appended to the normalized local part to form the expected
// certificate filename.
const fileSuffix = "_certificate.pdf"

// ErrNoCertificate signals that no certificate file exists for a recipient.
// Callers treat this as non-fatal: the email is sent without an attachment,
// or the recipient is skipped, depending on mode.
var ErrNoCertificate = errors.New("no certificate file for recipient")

// NormalizeLocalPart derives the matching key from an email address: the
// part before the @, lowercased, with everything but ASCII letters and
// digits stripped. Normalizing an already-normalized key returns it
// unchanged.
func NormalizeLocalPart(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	local = strings.ToLower(local)
	var b strings.Builder
	b.Grow(len(local))
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Filename returns the certificate filename expected for an address, e.g.
// jane.doe@example.com -> janedoe_certificate.pdf.
func Filename(email string) string {
	return NormalizeLocalPart(email) + fileSuffix
}

// Resolve returns the path of the recipient's certificate inside dir, or
// ErrNoCertificate when the file does not exist. Any other filesystem
// error is returned as-is.
func Resolve(dir, email string) (string, error) {
	key := NormalizeLocalPart(email)
	if key == "" {
		return "", fmt.Errorf("%w: address %q has no usable local part", ErrNoCertificate, email)
	}
	path := filepath.Join(dir, key+fileSuffix)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: expected %s", ErrNoCertificate, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNoCertificate, path)
	}
	return path, nil
}
