package mailer

import (
	"fmt"
	"html"

	"artisan-marketplace/pkg/utils"

	"gopkg.in/gomail.v2"
)

// Mailer delivers plain notification emails over SMTP
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	name   string
}

func New(cfg utils.EmailConfig, senderName string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		name:   senderName,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, m.name))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.AddAlternative("text/html", fmt.Sprintf("<p>%s</p>", html.EscapeString(body)))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
