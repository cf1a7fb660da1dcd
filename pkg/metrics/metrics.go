package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Mail delivery metrics
	MailSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certmailer_mail_sent_total",
		Help: "Total number of emails sent successfully",
	}, []string{"host"})
	MailFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certmailer_mail_failed_total",
		Help: "Total number of emails that failed to send",
	}, []string{"host"})

	// Certificate matching metrics
	CertificatesMatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certmailer_certificates_matched_total",
		Help: "Total number of recipients matched to a certificate file",
	}, []string{"dir"})
	CertificatesMissing = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certmailer_certificates_missing_total",
		Help: "Total number of recipients with no matching certificate file",
	}, []string{"dir"})
)

func init() {
	prometheus.MustRegister(
		MailSent,
		MailFailed,
		CertificatesMatched,
		CertificatesMissing,
	)
}
