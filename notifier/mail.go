package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/mail.v2"
)

// MailDialer interface for dependency injection and testing.
type MailDialer interface {
	DialAndSend(m ...*mail.Message) error
}

// Mail sends release notifications over SMTP.
type Mail struct {
	Host     string `schema:"host"`
	Port     int    `schema:"port"`
	Username string `schema:"username"`
	Password string `schema:"password"`
	From     string `schema:"from"`
	To       string `schema:"to"`
	Subject  string `schema:"subject"`
	TLS      bool   `schema:"tls"`
	dialer   MailDialer // for testing
	logger   *slog.Logger
}

// NewMail creates a Mail notifier from a host[:port]/recipient URL.
// Credentials missing from the URL query fall back to MAIL_USERNAME,
// MAIL_PASSWORD and MAIL_FROM.
func NewMail(addr string, logger *slog.Logger) (*Mail, error) {
	u, err := url.Parse("smtp://" + addr)
	if err != nil {
		return nil, err
	}

	m := &Mail{
		Host:    u.Hostname(),
		Subject: "Release notification",
		TLS:     true,
	}

	if u.Port() != "" {
		port, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %s", u.Port())
		}
		m.Port = port
	} else {
		m.Port = 587
	}

	if err := decoder.Decode(m, u.Query()); err != nil {
		return nil, err
	}

	if m.Username == "" {
		m.Username = os.Getenv("MAIL_USERNAME")
	}
	if m.Password == "" {
		m.Password = os.Getenv("MAIL_PASSWORD")
	}
	if m.From == "" {
		m.From = os.Getenv("MAIL_FROM")
	}
	if u.Path != "" && u.Path != "/" {
		m.To = strings.TrimPrefix(u.Path, "/")
	}
	if m.From == "" && m.Username != "" {
		m.From = m.Username
	}

	if m.Host == "" {
		return nil, fmt.Errorf("mail host is required")
	}
	if m.Username == "" {
		return nil, fmt.Errorf("mail username is required")
	}
	if m.Password == "" {
		return nil, fmt.Errorf("mail password is required")
	}
	if m.From == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	if m.To == "" {
		return nil, fmt.Errorf("mail to address is required")
	}

	m.logger = logger
	return m, nil
}

// SetDialer sets the mail dialer for testing purposes.
func (m *Mail) SetDialer(dialer MailDialer) {
	m.dialer = dialer
}

// Send sends an email notification.
func (m *Mail) Send(ctx context.Context, message string) {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.formatMessage(message))

	var dialer MailDialer
	if m.dialer != nil {
		dialer = m.dialer
	} else {
		d := mail.NewDialer(m.Host, m.Port, m.Username, m.Password)
		d.TLSConfig = &tls.Config{
			ServerName:         m.Host,
			InsecureSkipVerify: !m.TLS,
		}
		dialer = d
	}

	if err := dialer.DialAndSend(msg); err != nil {
		m.logger.Error("mail send failure", slog.String("error", err.Error()))
	}
}

func (m *Mail) formatMessage(message string) string {
	return fmt.Sprintf(`%s

Host: %s
User: %s`, message, hostname(), username())
}
