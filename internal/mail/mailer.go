// Package mail is the outbound mail collaborator for the account recovery
// flows. Delivery failures surface as apperr.ErrMailDelivery; the account
// state that preceded the send is never rolled back because of them.
package mail

import (
	"fmt"
	"log"
	"strconv"

	"backend/internal/apperr"

	gomail "gopkg.in/gomail.v2"
)

// Mailer sends a single HTML message.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer delivers through an SMTP server.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from SMTP settings. Port falls back to 465
// when unparsable.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 465
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, p, username, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Printf("Failed to send mail to %s: %v", to, err)
		return fmt.Errorf("%w: %v", apperr.ErrMailDelivery, err)
	}
	return nil
}

// RestoreEmail builds the subject and body of the account-restoration mail.
func RestoreEmail(link string) (subject, body string) {
	return "Account restoration",
		`<h3>Account recovery</h3>
<p>Click the link below to restore your account:</p>
<a href="` + link + `">` + link + `</a>`
}

// ResetPasswordEmail builds the subject and body of the password-reset mail.
func ResetPasswordEmail(link string) (subject, body string) {
	return "Password reset",
		`<h3>Reset your password</h3>
<p>Click the link below to choose a new password:</p>
<a href="` + link + `">` + link + `</a>`
}
