package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	host string
	port string
	user string
	pass string
	log  *logrus.Logger
}

func NewSMTPMailer(host, port, user, pass string, logger *logrus.Logger) Mailer {
	return &smtpMailer{
		host: host,
		port: port,
		user: user,
		pass: pass,
		log:  logger,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	if m.user == "" {
		m.log.Warn("Mailer: SMTP credentials not configured, dropping message")
		return fmt.Errorf("mailer is not configured")
	}

	msg := []byte("From: " + m.user + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	addr := m.host + ":" + m.port

	if err := smtp.SendMail(addr, auth, m.user, []string{to}, msg); err != nil {
		m.log.Errorf("Mailer: Failed to send mail to %s: %v", to, err)
		return fmt.Errorf("could not send mail: %w", err)
	}

	m.log.Infof("Mailer: Mail sent to %s (subject: %s)", to, subject)
	return nil
}
