package email

// Provider - абстракция над доставкой транзакционных писем.
// Сервисы зависят от интерфейса, тесты подставляют fake.
type Provider interface {
	// SendVerificationCode отправляет код подтверждения email
	SendVerificationCode(to, code string) error

	// SendPasswordResetCode отправляет код для сброса пароля
	SendPasswordResetCode(to, code string) error
}
