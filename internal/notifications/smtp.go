package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/voltlot/voltlot-backend/pkg/config"
)

const smtpBackendName = "smtp"

type smtpEnvelope struct {
	addr string
	host string
	auth smtp.Auth
	from string
	to   []string
	data []byte
}

// smtpSendMail is swapped out in tests.
var smtpSendMail = sendMailContext

// SMTPBackend delivers through a generic SMTP relay.
type SMTPBackend struct {
	host string
	addr string
	auth smtp.Auth
}

func NewSMTPBackend(cfg config.SMTPConfig) *SMTPBackend {
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPBackend{host: cfg.Host, addr: cfg.Addr(), auth: auth}
}

func (b *SMTPBackend) Name() string { return smtpBackendName }

func (b *SMTPBackend) Send(ctx context.Context, msg Message) (Info, error) {
	info := Info{"backend": smtpBackendName}
	envelopeFrom, err := bareAddress(msg.From)
	if err != nil {
		return info, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	env := smtpEnvelope{
		addr: b.addr,
		host: b.host,
		auth: b.auth,
		from: envelopeFrom,
		to:   msg.To,
		data: renderMIME(msg),
	}
	if err := smtpSendMail(ctx, env); err != nil {
		return info, err
	}
	return info, nil
}

func bareAddress(value string) (string, error) {
	parsed, err := mail.ParseAddress(value)
	if err != nil {
		return "", err
	}
	return parsed.Address, nil
}

func renderMIME(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + msg.ReplyTo + "\r\n")
	}
	b.WriteString("Subject: " + mimeHeader(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func mimeHeader(value string) string {
	clean := strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	return mime.QEncoding.Encode("UTF-8", clean)
}

// sendMailContext mirrors smtp.SendMail but bounds the whole exchange by ctx.
func sendMailContext(ctx context.Context, env smtpEnvelope) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", env.addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(defaultSendTimeout))
	}

	client, err := smtp.NewClient(conn, env.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: env.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if env.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(env.auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := client.Mail(env.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range env.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt to: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(env.data); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}
