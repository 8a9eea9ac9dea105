package email

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPConfig carries the mail transport settings and the public base URL used
// to build verification and reset links.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	BaseURL  string
}

// SMTPSender delivers transactional mail over plain SMTP.
type SMTPSender struct {
	config SMTPConfig
}

func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

func (s *SMTPSender) SendVerificationEmail(_ context.Context, to, name, token string) error {
	verifyURL := fmt.Sprintf("%s/auth/v1/email/verify?token=%s", s.config.BaseURL, token)
	subject := "Verify Your Email Address"
	body := fmt.Sprintf(`<html><body>
		<h2>Verify Your Email Address</h2>
		<p>Hello %s, thank you for registering. Please verify your email address to complete your registration.</p>
		<p><a href="%s">Click here to verify your email</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 24 hours.</p>
	</body></html>`, name, verifyURL, verifyURL)
	return s.sendEmail(to, subject, body)
}

func (s *SMTPSender) SendPasswordResetEmail(_ context.Context, to, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.BaseURL, token)
	subject := "Reset Your Password"
	body := fmt.Sprintf(`<html><body>
		<h2>Reset Your Password</h2>
		<p>Hello %s, a password reset has been requested for your account.</p>
		<p><a href="%s">Click here to reset your password</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 1 hour.</p>
		<p>If you did not request this password reset, please ignore this email.</p>
	</body></html>`, name, resetURL, resetURL)
	return s.sendEmail(to, subject, body)
}

func (s *SMTPSender) SendNotificationEmail(_ context.Context, to, subject, body string) error {
	return s.sendEmail(to, subject, body)
}

func (s *SMTPSender) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
