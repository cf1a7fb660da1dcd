package mail

import (
	"crypto/tls"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/icpep-se/certmailer/pkg/config"
	"github.com/icpep-se/certmailer/pkg/metrics"
)

// Inline is an in-memory part embedded into the message body, referenced
// from the HTML via cid:<Name>.
type Inline struct {
	Name string
	Data []byte
}

// Message is one outgoing email, constructed fresh per recipient and
// discarded after the send.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []string
	Inlines     []Inline
}

// Session is an open SMTP connection that can send several messages
// before closing. One session per bulk batch.
type Session interface {
	Send(msg *Message) error
	Close() error
}

// Sender opens SMTP sessions and sends messages. Send dials, delivers one
// message and closes; Open keeps the connection for a whole batch.
type Sender interface {
	Send(msg *Message) error
	Open() (Session, error)
	Host() string
	Port() int
}

type sender struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	log           *zap.SugaredLogger
}

// NewSender builds a Sender from the loaded config and the resolved app
// password.
func NewSender(cfg *config.Config, password string, log *zap.SugaredLogger) Sender {
	log.Infow("Initializing mail sender",
		"host", cfg.SMTPHost,
		"port", cfg.SMTPPort,
		"user", cfg.SenderEmail)
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, password)
	if cfg.InsecureSkipVerify {
		log.Warnw("InsecureSkipVerify is enabled for the mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- explicit opt-in
	}
	return &sender{
		dialer:        d,
		senderAddress: cfg.SenderEmail,
		senderName:    cfg.SenderName,
		log:           log,
	}
}

func (s *sender) build(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderAddress, s.senderName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	if msg.TextBody != "" {
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	} else {
		m.SetBody("text/html", msg.HTMLBody)
	}
	for _, inline := range msg.Inlines {
		data := inline.Data
		m.Embed(inline.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	for _, path := range msg.Attachments {
		m.Attach(path)
	}
	return m
}

// Send delivers a single message over its own connection. One try, no
// retries: a failure is reported to the caller, which decides whether the
// batch continues.
func (s *sender) Send(msg *Message) error {
	err := s.dialer.DialAndSend(s.build(msg))
	if err != nil {
		metrics.MailFailed.WithLabelValues(s.Host()).Inc()
		return err
	}
	metrics.MailSent.WithLabelValues(s.Host()).Inc()
	s.log.Infow("Mail sent", "to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	return nil
}

// Open dials once so a batch can reuse the connection for every message.
func (s *sender) Open() (Session, error) {
	sc, err := s.dialer.Dial()
	if err != nil {
		return nil, err
	}
	return &session{sender: s, sc: sc}, nil
}

func (s *sender) Host() string {
	return s.dialer.Host
}

func (s *sender) Port() int {
	return s.dialer.Port
}

type session struct {
	sender *sender
	sc     gomail.SendCloser
}

func (ss *session) Send(msg *Message) error {
	err := gomail.Send(ss.sc, ss.sender.build(msg))
	if err != nil {
		metrics.MailFailed.WithLabelValues(ss.sender.Host()).Inc()
		return err
	}
	metrics.MailSent.WithLabelValues(ss.sender.Host()).Inc()
	ss.sender.log.Infow("Mail sent", "to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	return nil
}

func (ss *session) Close() error {
	return ss.sc.Close()
}
