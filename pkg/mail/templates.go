package mail

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/icpep-se/certmailer/pkg/config"
)

// CertificateParams fills the certificate template.
type CertificateParams struct {
	RecipientName  string
	Subject        string
	CertificateURL string
	Company        config.CompanyInfo
	LogoCID        string
	Year           int
	MessageID      string
}

// InviteParams fills the meeting invitation template.
type InviteParams struct {
	RecipientName string
	Subject       string
	Topic         string
	Date          string
	Time          string
	Link          string
	Company       config.CompanyInfo
	LogoCID       string
	Year          int
	MessageID     string
}

var (
	certificateTemplate = template.New("certificate")
	inviteTemplate      = template.New("invite")

	//go:embed templates/certificate.html
	certificateTemplateRaw string
	//go:embed templates/invite.html
	inviteTemplateRaw string
)

func init() {
	funcs := template.FuncMap(sprig.FuncMap())
	if _, err := certificateTemplate.Funcs(funcs).Parse(certificateTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := inviteTemplate.Funcs(funcs).Parse(inviteTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

// RenderCertificate renders the HTML body for a certificate email.
func RenderCertificate(p CertificateParams) (string, error) {
	return render(certificateTemplate, p)
}

// RenderInvite renders the HTML body for a meeting invitation email.
func RenderInvite(p InviteParams) (string, error) {
	return render(inviteTemplate, p)
}

// PlainTextFallback is the text/plain alternative part for clients that
// don't render HTML.
func PlainTextFallback(recipientName string) string {
	return fmt.Sprintf("Dear %s,\n\nThis message contains HTML content.\nPlease view it in an email client that supports HTML.\n", recipientName)
}
