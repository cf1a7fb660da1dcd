package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/icpep-se/certmailer/pkg/certs"
	"github.com/icpep-se/certmailer/pkg/config"
	"github.com/icpep-se/certmailer/pkg/mail"
	"github.com/icpep-se/certmailer/pkg/metrics"
)

// Mode selects which template a run renders.
type Mode string

const (
	ModeCertificate Mode = "certificate"
	ModeInvite      Mode = "invite"
)

// Options describes one run of the send loop.
type Options struct {
	Mode    Mode
	Subject string

	// Certificate mode
	AttachCerts bool   // look up {normalized}_certificate.pdf per recipient
	RequireCert bool   // skip recipients with no certificate instead of sending without
	AttachPath  string // explicit attachment, single-send only

	// Invite mode
	Topic string
	Date  string
	Time  string
	Link  string
}

// Result records the outcome for one recipient.
type Result struct {
	Email    string `json:"email" yaml:"email"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Sent     bool   `json:"sent" yaml:"sent"`
	Attached bool   `json:"attached,omitempty" yaml:"attached,omitempty"`
	Skipped  bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary is the outcome of a whole run.
type Summary struct {
	Results []Result `json:"results" yaml:"results"`
	Sent    int      `json:"sent" yaml:"sent"`
	Failed  int      `json:"failed" yaml:"failed"`
	Skipped int      `json:"skipped" yaml:"skipped"`
}

// AnyFailed reports whether at least one send failed; the process exit
// status reflects it.
func (s *Summary) AnyFailed() bool {
	return s.Failed > 0
}

func (s *Summary) record(r Result) {
	s.Results = append(s.Results, r)
	switch {
	case r.Skipped:
		s.Skipped++
	case r.Sent:
		s.Sent++
	default:
		s.Failed++
	}
}

// Runner drives the sequential send loop: render, match, send, one
// recipient at a time over a single SMTP session.
type Runner struct {
	cfg     *config.Config
	sender  mail.Sender
	logos   *mail.LogoFetcher
	log     *zap.SugaredLogger
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRunner builds a Runner for the given config and sender.
func NewRunner(cfg *config.Config, sender mail.Sender, log *zap.SugaredLogger) *Runner {
	r := &Runner{
		cfg:    cfg,
		sender: sender,
		logos:  mail.NewLogoFetcher(log),
		log:    log,
		now:    time.Now,
	}
	if cfg.SendIntervalMs > 0 {
		interval := time.Duration(cfg.SendIntervalMs) * time.Millisecond
		r.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return r
}

// Run sends to every configured recipient over one reused SMTP session.
// Transport errors are recorded per recipient and the loop continues; only
// a failure to open the session aborts the run.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logo := r.fetchLogo(ctx)

	session, err := r.sender.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s:%d: %w", r.sender.Host(), r.sender.Port(), err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.log.Warnw("Error closing mail session", "error", cerr)
		}
	}()

	summary := &Summary{}
	for _, recipient := range r.cfg.Recipients {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}
		summary.record(r.sendTo(session, recipient, logo, opts))
	}

	r.log.Infow("Batch finished",
		"mode", opts.Mode,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return summary, nil
}

// RunOne sends a single message over its own connection, used by the
// single-send command and by test sends before a bulk run.
func (r *Runner) RunOne(ctx context.Context, recipient config.Recipient, opts Options) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logo := r.fetchLogo(ctx)
	summary := &Summary{}
	summary.record(r.sendTo(r.sender, recipient, logo, opts))
	return summary, nil
}

// sendTarget is satisfied by both the Sender (own connection per message)
// and an open Session (reused connection).
type sendTarget interface {
	Send(msg *mail.Message) error
}

func (r *Runner) sendTo(target sendTarget, recipient config.Recipient, logo []byte, opts Options) Result {
	result := Result{Email: recipient.Email, Name: recipient.Name}

	msg := &mail.Message{
		To:       recipient.Email,
		ToName:   recipient.Name,
		Subject:  opts.Subject,
		TextBody: mail.PlainTextFallback(recipient.DisplayName()),
	}

	if opts.AttachPath != "" {
		msg.Attachments = append(msg.Attachments, opts.AttachPath)
		result.Attached = true
	} else if opts.Mode == ModeCertificate && opts.AttachCerts {
		path, err := certs.Resolve(r.cfg.CertificatesDir, recipient.Email)
		switch {
		case err == nil:
			metrics.CertificatesMatched.WithLabelValues(r.cfg.CertificatesDir).Inc()
			msg.Attachments = append(msg.Attachments, path)
			result.Attached = true
		case errors.Is(err, certs.ErrNoCertificate):
			metrics.CertificatesMissing.WithLabelValues(r.cfg.CertificatesDir).Inc()
			if opts.RequireCert {
				r.log.Warnw("No certificate for recipient, skipping", "email", recipient.Email)
				result.Skipped = true
				return result
			}
			r.log.Warnw("No certificate for recipient, sending without attachment", "email", recipient.Email)
		default:
			result.Error = err.Error()
			return result
		}
	}

	body, err := r.renderBody(recipient, logo, opts)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	msg.HTMLBody = body
	if len(logo) > 0 {
		msg.Inlines = append(msg.Inlines, mail.Inline{Name: mail.LogoCID, Data: logo})
	}

	if err := target.Send(msg); err != nil {
		r.log.Errorw("Failed to send", "email", recipient.Email, "error", err)
		result.Error = err.Error()
		return result
	}
	result.Sent = true
	return result
}

func (r *Runner) renderBody(recipient config.Recipient, logo []byte, opts Options) (string, error) {
	logoCID := ""
	if len(logo) > 0 {
		logoCID = mail.LogoCID
	}
	year := r.now().Year()
	id := uuid.NewString()

	switch opts.Mode {
	case ModeInvite:
		return mail.RenderInvite(mail.InviteParams{
			RecipientName: recipient.DisplayName(),
			Subject:       opts.Subject,
			Topic:         opts.Topic,
			Date:          opts.Date,
			Time:          opts.Time,
			Link:          opts.Link,
			Company:       r.cfg.CompanyInfo,
			LogoCID:       logoCID,
			Year:          year,
			MessageID:     id,
		})
	default:
		return mail.RenderCertificate(mail.CertificateParams{
			RecipientName:  recipient.DisplayName(),
			Subject:        opts.Subject,
			CertificateURL: recipient.CertificateURL,
			Company:        r.cfg.CompanyInfo,
			LogoCID:        logoCID,
			Year:           year,
			MessageID:      id,
		})
	}
}

func (r *Runner) fetchLogo(ctx context.Context) []byte {
	logo, err := r.logos.Fetch(ctx, r.cfg.LogoURL)
	if err != nil {
		r.log.Warnw("Logo unavailable, sending without it", "error", err)
		return nil
	}
	return logo
}

func (o *Options) validate() error {
	if o.Subject == "" {
		return errors.New("subject is required")
	}
	switch o.Mode {
	case ModeCertificate:
	case ModeInvite:
		if o.Topic == "" || o.Link == "" {
			return errors.New("invite mode requires a topic and a meet link")
		}
	default:
		return fmt.Errorf("unknown send mode %q", o.Mode)
	}
	return nil
}
