// Package mailer implements the delivery transport over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

type Config struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS; otherwise opportunistic STARTTLS
	Username string
	Password string
	From     string

	// RatePerSec caps outbound sends; 0 disables the limiter.
	RatePerSec float64
}

// SMTP sends queue items through a mail submission server. Safe for
// concurrent use; each Send dials its own session.
type SMTP struct {
	client  *mail.Client
	from    string
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New builds the transport. Whether the mailer is configured at all is
// the caller's decision (see config.MailerConfig.Enabled); New only
// rejects settings that can never work.
func New(cfg Config, log zerolog.Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.New("mailer: host and port are required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: from address is required")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &SMTP{client: client, from: cfg.From, limiter: limiter, log: log}, nil
}

// Send delivers one message with an HTML body and a plain-text
// alternative. Blocks on the rate limiter first when one is configured.
func (s *SMTP) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mailer: from %q: %w", s.from, err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("mailer: to %q: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}
	s.log.Debug().Str("recipient", recipient).Str("subject", subject).Msg("mail delivered")
	return nil
}
