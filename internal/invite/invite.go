// Package invite sends game invitation emails over SMTP.
package invite

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer interface {
	SendInvitation(to, gameName, link string) error
}

type SMTPMailer struct {
	host string
	from string
	auth smtp.Auth
}

// NewSMTPMailer wires plain auth against host ("smtp.example.com:587").
func NewSMTPMailer(host, username, password, from string) *SMTPMailer {
	authHost := host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		authHost = host[:i]
	}
	return &SMTPMailer{
		host: host,
		from: from,
		auth: smtp.PlainAuth("", username, password, authHost),
	}
}

func (m *SMTPMailer) SendInvitation(to, gameName, link string) error {
	if gameName == "" {
		gameName = "a whist game"
	}
	subject := fmt.Sprintf("Subject: You're invited to %s\n", gameName)
	body := fmt.Sprintf("You've been invited to join %s.\n\nOpen the game here: %s\n", gameName, link)
	msg := []byte(subject + "\n" + body)
	return smtp.SendMail(m.host, m.auth, m.from, []string{to}, msg)
}

// NopMailer is used when SMTP is not configured; invitations succeed
// without sending anything.
type NopMailer struct{}

func (NopMailer) SendInvitation(string, string, string) error { return nil }
