// Package transport adapts the notification Transport port to real delivery
// mechanisms. The SMTP adapter is the production one; tests mock the port.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"tradegate/internal/platform/config"
)

// SMTP delivers email over plain SMTP or SMTPS. Delivery runs in a goroutine
// so the context deadline set by the dispatcher bounds the call.
type SMTP struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTP{cfg: cfg, auth: auth}
}

func (t *SMTP) DeliverEmail(ctx context.Context, to, subject, htmlBody string) error {
	done := make(chan error, 1)
	go func() {
		done <- t.deliver(to, subject, htmlBody)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp delivery: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

func (t *SMTP) deliver(to, subject, htmlBody string) error {
	message := t.buildMessage(to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)

	if t.cfg.UseTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: t.cfg.Host})
		if err != nil {
			return fmt.Errorf("dial tls: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, t.cfg.Host)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
		defer client.Close()

		return t.sendWithClient(client, to, message)
	}

	if err := smtp.SendMail(addr, t.auth, t.cfg.From, []string{to}, message); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (t *SMTP) sendWithClient(client *smtp.Client, to string, message []byte) error {
	if t.auth != nil {
		if err := client.Auth(t.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(t.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

func (t *SMTP) buildMessage(to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
