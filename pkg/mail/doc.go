// Package mail sends HTML-templated email over SMTP with STARTTLS,
// including file attachments and inline images. Template rendering lives
// here too, as embedded HTML with named placeholders.
package mail
