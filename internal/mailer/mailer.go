// Package mailer delivers finished itineraries by email. A plan rendered
// to markdown becomes a multipart/alternative message (plain text plus
// HTML) and goes out over SMTP. Mail is optional: with no mail section
// in the config the Mailer still constructs, and Send reports
// ErrNotConfigured instead of dialing.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernwey/atlas-travel-agent/internal/config"
)

// DefaultSubject is stamped on messages that arrive without a subject.
const DefaultSubject = "您的旅行行程"

// ErrNotConfigured is returned by Send when no SMTP host is configured.
var ErrNotConfigured = errors.New("mail not configured")

// Message is one outbound itinerary mail. Body is markdown; the
// composer renders it to both plain text and HTML. Bcc recipients
// receive the message but never appear in its headers.
type Message struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// Mailer sends itinerary mail through the configured SMTP server.
// The From address always comes from the config.
type Mailer struct {
	cfg    config.MailConfig
	logger *slog.Logger
}

// New creates a Mailer. A zero-value config yields a disabled Mailer.
func New(cfg config.MailConfig, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Enabled reports whether outbound mail is configured. Safe on nil.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled()
}

// Send composes and delivers one message. Each call opens and closes
// its own SMTP connection; itinerary mail is low-volume, so there is
// nothing to pool.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("mail has no recipients")
	}

	raw, err := composeMessage(m.cfg.From, msg)
	if err != nil {
		return fmt.Errorf("compose mail: %w", err)
	}

	recipients := collectRecipients(msg.To, msg.Cc, msg.Bcc)
	from := extractAddress(m.cfg.From)

	if err := sendMail(ctx, m.cfg, from, recipients, raw); err != nil {
		return err
	}

	m.logger.Info("itinerary mail sent",
		"to", len(msg.To),
		"recipients", len(recipients),
		"bytes", len(raw))
	return nil
}
