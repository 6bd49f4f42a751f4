// Package mailer composes outreach emails and delivers them over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Server identifies an outgoing SMTP server.
type Server struct {
	Host string
	Port int
	// SSL selects implicit TLS. When false the dialer upgrades with STARTTLS
	// if the server offers it.
	SSL bool
}

// Config holds delivery credentials and the sender identity.
type Config struct {
	Server      Server
	Username    string
	Password    string
	FromName    string
	FromAddress string
}

// Message is a composed email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	// Mockup, when set, is embedded inline under the mockupContentID.
	Mockup *Attachment
}

// Attachment is an inline image read from disk.
type Attachment struct {
	Path     string
	FileName string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Verify(ctx context.Context) error
}

// Dialer is the subset of gomail.Dialer used for delivery.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
	Dial() (gomail.SendCloser, error)
}

// SMTPSender delivers mail through gomail.
type SMTPSender struct {
	cfg    Config
	dialer Dialer
}

// Option configures an SMTPSender.
type Option func(*SMTPSender)

// WithDialer replaces the SMTP dialer.
func WithDialer(d Dialer) Option {
	return func(s *SMTPSender) { s.dialer = d }
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg Config, opts ...Option) *SMTPSender {
	d := gomail.NewDialer(cfg.Server.Host, cfg.Server.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Server.SSL
	d.TLSConfig = &tls.Config{ServerName: cfg.Server.Host, MinVersion: tls.VersionTLS12}

	s := &SMTPSender{cfg: cfg, dialer: d}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send builds and delivers msg. The context is checked before dialing; gomail
// has no cancellation hook once the SMTP exchange begins.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailer: send")
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return eris.Wrapf(err, "mailer: send to %s", msg.To)
	}
	zap.L().Info("mailer: message sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// Verify opens and closes an authenticated SMTP session.
func (s *SMTPSender) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailer: verify")
	}
	c, err := s.dialer.Dial()
	if err != nil {
		return eris.Wrapf(err, "mailer: connect %s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	}
	return eris.Wrap(c.Close(), "mailer: close connection")
}

func (s *SMTPSender) build(msg Message) (*gomail.Message, error) {
	if msg.To == "" {
		return nil, eris.New("mailer: recipient is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.FromAddress, s.cfg.FromName))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	html := msg.HTML
	if msg.Mockup != nil {
		if _, err := os.Stat(msg.Mockup.Path); err != nil {
			zap.L().Warn("mailer: mockup missing, sending without image",
				zap.String("path", msg.Mockup.Path), zap.Error(err))
		} else {
			path := msg.Mockup.Path
			m.Embed(msg.Mockup.FileName,
				gomail.SetCopyFunc(func(w io.Writer) error {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close() //nolint:errcheck
					_, err = io.Copy(w, f)
					return err
				}),
				gomail.SetHeader(map[string][]string{"Content-ID": {"<" + mockupContentID + ">"}}),
			)
			html = withMockup(html)
		}
	}
	m.SetBody("text/html", html)
	return m, nil
}
