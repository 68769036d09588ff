package email

import (
	"mfs_backend/internal/logger"
)

// LogProvider пишет коды в лог вместо отправки. Для локальной
// разработки без SMTP.
type LogProvider struct{}

func NewLogProvider() *LogProvider {
	return &LogProvider{}
}

func (p *LogProvider) SendVerificationCode(to, code string) error {
	logger.Info("verification code issued", "to", to, "code", code)
	return nil
}

func (p *LogProvider) SendPasswordResetCode(to, code string) error {
	logger.Info("password reset code issued", "to", to, "code", code)
	return nil
}
