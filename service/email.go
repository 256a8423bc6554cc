package service

import (
	"fmt"

	"financas/config"

	"gopkg.in/gomail.v2"
)

// EmailService sends transactional mail over SMTP.
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService creates an email service.
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendPasswordResetEmail sends the 6-digit reset code to the user.
func (s *EmailService) SendPasswordResetEmail(toEmail, name, code string) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("email service disabled, set email.enabled=true")
	}

	subject := "Finanças — Redefinição de senha"
	body := s.buildResetEmailBody(name, code)

	return s.send(toEmail, subject, body)
}

func (s *EmailService) buildResetEmailBody(name, code string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; background: #f5f5f5; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; padding: 30px;">
    <h1 style="color: #2563eb; margin-top: 0;">Finanças</h1>
    <p>Olá, <strong>%s</strong>!</p>
    <p>Recebemos um pedido de redefinição de senha. Use o código abaixo:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px; text-align: center;">%s</p>
    <p style="color: #856404; background: #fff3cd; padding: 12px; border-radius: 4px;">
      O código expira em 10 minutos. Se você não pediu a redefinição, ignore este email.
    </p>
    <p style="color: #6c757d; font-size: 12px;">Email automático, não responda.</p>
  </div>
</body>
</html>
`, name, code)
}

func (s *EmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
