package infra

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	netmail "net/mail"
	"strings"

	"contact-gateway/contact/domain"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To é a caixa fixa do operador. O email submetido nunca vira destinatário.
	To string
}

func (c SMTPConfig) configured() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != "" && c.To != ""
}

func (c SMTPConfig) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// SMTPDispatcher entrega a submissão via relay SMTP autenticado.
// Sem credenciais o envio falha (ErrRelayNotConfigured); sem retry.
type SMTPDispatcher struct {
	cfg      SMTPConfig
	transmit func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	d := &SMTPDispatcher{cfg: cfg}
	d.transmit = d.dialAndSend
	return d
}

func (d *SMTPDispatcher) Send(ctx context.Context, sub domain.Submission) error {
	if !d.cfg.configured() {
		return domain.ErrRelayNotConfigured
	}

	msg, err := d.message(sub)
	if err != nil {
		return err
	}
	return d.transmit(ctx, msg)
}

func (d *SMTPDispatcher) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(d.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(d.cfg.Username),
		mail.WithPassword(d.cfg.Password),
	}
	if d.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

var headerSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

func (d *SMTPDispatcher) message(sub domain.Submission) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(d.cfg.sender()); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(d.cfg.To); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	// Reply-To só quando o endereço é válido; o destino continua fixo.
	if addr, err := netmail.ParseAddress(sub.Email); err == nil {
		_ = msg.ReplyTo(addr.Address)
	}
	msg.Subject("New contact form submission from " + headerSanitizer.Replace(sub.Name))

	html, err := renderHTML(sub)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextPlain, renderText(sub))
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

func renderText(sub domain.Submission) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s\n", sub.Name, sub.Email, sub.Message)
}

var htmlBody = template.Must(template.New("contact").Parse(`<h2>New contact form submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap">{{.Message}}</p>
`))

func renderHTML(sub domain.Submission) (string, error) {
	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, sub); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
