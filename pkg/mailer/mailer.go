// Package mailer delivers HTML email over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is a single outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Config holds SMTP connection settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
	Timeout   time.Duration
}

// Enabled reports whether enough settings are present to send mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// SMTPMailer sends messages through an SMTP relay. Without credentials it
// only logs what would have been sent.
type SMTPMailer struct {
	cfg    Config
	logger zerolog.Logger
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// New constructs an SMTP mailer.
func New(cfg Config, logger zerolog.Logger) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	m := &SMTPMailer{
		cfg:    cfg,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
	m.send = m.deliver
	return m
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mailer: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !m.cfg.Enabled() {
		m.logger.Warn().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("smtp credentials not configured, email not sent")
		return nil
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.FromEmail, []string{msg.To}, m.compose(msg)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}

	m.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

func (m *SMTPMailer) deliver(addr string, auth smtp.Auth, from string, to []string, body []byte) error {
	if !m.cfg.UseTLS {
		return smtp.SendMail(addr, auth, from, to, body)
	}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: m.cfg.Timeout}, "tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
