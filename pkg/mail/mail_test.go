package mail

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icpep-se/certmailer/pkg/config"
	"github.com/icpep-se/certmailer/pkg/system"
)

func testConfig(host string, port int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.SenderEmail = "sender@example.com"
	cfg.SenderName = "Events Team"
	cfg.SMTPHost = host
	cfg.SMTPPort = port
	return &cfg
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{
			name: "gmail defaults",
			cfg:  testConfig(config.DefaultSMTPHost, config.DefaultSMTPPort),
		},
		{
			name: "custom relay",
			cfg:  testConfig("smtp-relay.internal", 25),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSender(tt.cfg, "app-password", system.NewTestLogger())
			assert.NotNil(t, s)
			assert.Implements(t, (*Sender)(nil), s)
			assert.Equal(t, tt.cfg.SMTPHost, s.Host())
			assert.Equal(t, tt.cfg.SMTPPort, s.Port())
		})
	}
}

func TestNewSenderInsecureSkipVerify(t *testing.T) {
	cfg := testConfig("smtp.internal", 587)
	cfg.InsecureSkipVerify = true
	s := NewSender(cfg, "pw", system.NewTestLogger())
	assert.NotNil(t, s)
}

func TestSendNoServer(t *testing.T) {
	// Port 1 is never listening; Send must fail without panicking.
	s := NewSender(testConfig("127.0.0.1", 1), "pw", system.NewTestLogger())
	err := s.Send(&Message{To: "rcpt@example.com", Subject: "Hello", HTMLBody: "<p>hi</p>"})
	assert.Error(t, err)
}

func TestSendHappyPath(t *testing.T) {
	host, port, data, stop := startTestSMTPServer(t)
	defer stop()

	s := NewSender(testConfig(host, port), "", system.NewTestLogger())
	err := s.Send(&Message{
		To:       "recipient@example.com",
		ToName:   "Jane Doe",
		Subject:  "Your Certificate of Participation",
		HTMLBody: "<p>body</p>",
		TextBody: "body",
	})
	require.NoError(t, err)

	stop()
	raw := strings.Join(*data, "\n")
	assert.Contains(t, raw, "Subject: Your Certificate of Participation")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "text/plain")
}

func TestSendWithAttachment(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "janedoe_certificate.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 test"), 0o600))

	host, port, data, stop := startTestSMTPServer(t)
	defer stop()

	s := NewSender(testConfig(host, port), "", system.NewTestLogger())
	err := s.Send(&Message{
		To:          "recipient@example.com",
		Subject:     "Certificate attached",
		HTMLBody:    "<p>see attachment</p>",
		Attachments: []string{pdf},
	})
	require.NoError(t, err)

	stop()
	raw := strings.Join(*data, "\n")
	assert.Contains(t, raw, "janedoe_certificate.pdf")
}

func TestSendWithInlineLogo(t *testing.T) {
	host, port, data, stop := startTestSMTPServer(t)
	defer stop()

	s := NewSender(testConfig(host, port), "", system.NewTestLogger())
	err := s.Send(&Message{
		To:       "recipient@example.com",
		Subject:  "With logo",
		HTMLBody: `<img src="cid:logo.png"/>`,
		Inlines:  []Inline{{Name: LogoCID, Data: []byte{0x89, 'P', 'N', 'G'}}},
	})
	require.NoError(t, err)

	stop()
	raw := strings.Join(*data, "\n")
	assert.Contains(t, raw, "logo.png")
}

func TestSessionReuse(t *testing.T) {
	host, port, data, stop := startTestSMTPServer(t)
	defer stop()

	s := NewSender(testConfig(host, port), "", system.NewTestLogger())
	sess, err := s.Open()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := sess.Send(&Message{
			To:       fmt.Sprintf("user%d@example.com", i),
			Subject:  "Batch",
			HTMLBody: "<p>hi</p>",
		})
		require.NoError(t, err)
	}
	require.NoError(t, sess.Close())

	stop()
	raw := strings.Join(*data, "\n")
	for i := 0; i < 3; i++ {
		assert.Contains(t, raw, fmt.Sprintf("user%d@example.com", i))
	}
}

func TestOpenNoServer(t *testing.T) {
	s := NewSender(testConfig("127.0.0.1", 1), "pw", system.NewTestLogger())
	_, err := s.Open()
	assert.Error(t, err)
}

// startTestSMTPServer starts a minimal SMTP server on a random port that
// records everything the client sends. It only implements the commands the
// sender needs.
func startTestSMTPServer(t *testing.T) (host string, port int, data *[]string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	lines := make([]string, 0)
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 localhost Test SMTP Service Ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				fmt.Fprintf(conn, "250-localhost Hello\r\n250 OK\r\n")
			case strings.HasPrefix(line, "MAIL FROM:"), strings.HasPrefix(line, "RCPT TO:"):
				fmt.Fprintf(conn, "250 OK\r\n")
			case strings.HasPrefix(line, "DATA"):
				fmt.Fprintf(conn, "354 End data with <CR><LF>.<CR><LF>\r\n")
				for {
					dline, derr := r.ReadString('\n')
					if derr != nil {
						return
					}
					dline = strings.TrimRight(dline, "\r\n")
					if dline == "." {
						break
					}
					mu.Lock()
					lines = append(lines, dline)
					mu.Unlock()
				}
				fmt.Fprintf(conn, "250 OK: queued\r\n")
			case strings.HasPrefix(line, "QUIT"):
				fmt.Fprintf(conn, "221 Bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 OK\r\n")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	stop = func() {
		ln.Close()
		wg.Wait()
	}
	return "127.0.0.1", addr.Port, &lines, stop
}
