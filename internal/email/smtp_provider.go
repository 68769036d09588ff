package email

import (
	"fmt"

	"mfs_backend/internal/config"

	"gopkg.in/gomail.v2"
)

// SMTPProvider реализует Provider поверх gomail
type SMTPProvider struct {
	cfg *config.Config
}

// NewSMTPProvider создает новый SMTP провайдер
func NewSMTPProvider(cfg *config.Config) (*SMTPProvider, error) {
	if cfg.Email.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.Email.SMTPPort <= 0 || cfg.Email.SMTPPort > 65535 {
		return nil, fmt.Errorf("invalid SMTP port: %d", cfg.Email.SMTPPort)
	}

	return &SMTPProvider{cfg: cfg}, nil
}

// SendVerificationCode отправляет код подтверждения email
func (p *SMTPProvider) SendVerificationCode(to, code string) error {
	body, err := Render("verification", templateData{Code: code})
	if err != nil {
		return err
	}
	return p.send(to, "Verify Your Email Address", body)
}

// SendPasswordResetCode отправляет код для сброса пароля
func (p *SMTPProvider) SendPasswordResetCode(to, code string) error {
	body, err := Render("password_reset", templateData{Code: code})
	if err != nil {
		return err
	}
	return p.send(to, "Reset Your Password", body)
}

func (p *SMTPProvider) send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.cfg.Email.FromEmail, p.cfg.Email.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(
		p.cfg.Email.SMTPHost,
		p.cfg.Email.SMTPPort,
		p.cfg.Email.SMTPUsername,
		p.cfg.Email.SMTPPassword,
	)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
