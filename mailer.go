package pageuser

import (
	"fmt"
	"net/smtp"
)

// Mailer sends plain-text mail over SMTP. A zero-value Mailer is a no-op
// that reports itself unconfigured.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewMailer builds a Mailer from SMTP settings.
func NewMailer(cfg SMTPConfig) Mailer {
	return Mailer{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	}
}

func (m Mailer) configured() bool {
	return m.Host != "" && m.From != ""
}

// Send delivers a plain-text message to a single recipient.
func (m Mailer) Send(to, subject, body string) error {
	if !m.configured() {
		return fmt.Errorf("mailer not configured")
	}
	msg := fmt.Appendf(nil, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, auth, m.From, []string{to}, msg)
}
