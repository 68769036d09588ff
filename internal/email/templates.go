package email

import (
	"fmt"
	"html/template"
	"strings"
)

// Шаблоны писем. Инлайн, без внешней директории: писем всего два.
var templates = map[string]*template.Template{
	"verification": template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2c3e50;">Email Verification</h2>
  <p>Hello,</p>
  <p>Please use the following OTP to verify your email address:</p>
  <div style="background: #f8f9fa; padding: 20px; text-align: center; margin: 20px 0; font-size: 24px; font-weight: bold;">
    {{.Code}}
  </div>
  <p>This code will expire in 10 minutes.</p>
  <p>If you didn't request this, please ignore this email.</p>
</div>`)),

	"password_reset": template.Must(template.New("password_reset").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2c3e50;">Password Reset</h2>
  <p>Hello,</p>
  <p>Please use the following OTP to reset your password:</p>
  <div style="background: #f8f9fa; padding: 20px; text-align: center; margin: 20px 0; font-size: 24px; font-weight: bold;">
    {{.Code}}
  </div>
  <p>This code will expire in 10 minutes.</p>
</div>`)),
}

type templateData struct {
	Code string
}

// Render рендерит именованный шаблон письма
func Render(name string, data templateData) (string, error) {
	tmpl, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template: %s", name)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return sb.String(), nil
}
