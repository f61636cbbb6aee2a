package authcore

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SendEmail delivers templated verification emails. Applications can plug
// in their own transport.
type SendEmail interface {
	SendVerificationEmail(to string, verificationLink string) error
}

// ConsoleEmailSender is a development implementation that logs emails
// instead of sending them.
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendVerificationEmail(to string, verificationLink string) error {
	slog.Info("verification email (console sender)", "to", to, "link", verificationLink)
	return nil
}

var verificationTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body>
<h2>Verify your account</h2>
<p>Click the link below to verify your account:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
</body>
</html>`))

// SMTPEmailSender sends verification emails over SMTP.
type SMTPEmailSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s *SMTPEmailSender) SendVerificationEmail(to string, verificationLink string) error {
	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, struct{ Link string }{verificationLink}); err != nil {
		return fmt.Errorf("failed to render verification email: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Verify your account")
	msg.SetBodyString(mail.TypeTextPlain, "Click the link below to verify your account: "+verificationLink)
	msg.AddAlternativeString(mail.TypeTextHTML, body.String())

	client, err := mail.NewClient(s.Host,
		mail.WithPort(s.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Username),
		mail.WithPassword(s.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
