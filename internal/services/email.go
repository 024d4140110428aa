package services

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailSender delivers a plain-text email
type EmailSender interface {
	Send(ctx context.Context, subject, body, from string, to []string) error
}

// GomailSender sends email over SMTP
type GomailSender struct {
	host     string
	port     int
	user     string
	password string
}

func NewGomailSender(host string, port int, user, password string) *GomailSender {
	return &GomailSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
	}
}

func (s *GomailSender) Send(ctx context.Context, subject, body, from string, to []string) error {
	if s.host == "" || s.port == 0 {
		return fmt.Errorf("SMTP credentials not fully configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	d := gomail.NewDialer(s.host, s.port, s.user, s.password)

	// gomail has no context support; the dial itself gives up after 10s
	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}
