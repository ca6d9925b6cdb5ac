// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mailer renders the paper digest as HTML and delivers it over SMTP.
//
// The SMTP server is taken from configuration or inferred from the sender's
// domain. Delivery tries implicit TLS and STARTTLS in an order that depends
// on the port and only fails when every attempt fails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// DefaultSubjectPrefix starts the subject when none is configured.
const DefaultSubjectPrefix = "[ArXiv Daily]"

// Connection modes.
const (
	ModeSSL      = "ssl"
	ModeSTARTTLS = "starttls"
)

// ErrAllAttemptsFailed is returned when no SMTP attempt delivered the message.
var ErrAllAttemptsFailed = errors.New("all SMTP attempts failed")

// Endpoint is one SMTP connection attempt.
type Endpoint struct {
	Host string
	Port int
	Mode string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d/%s", e.Host, e.Port, e.Mode)
}

// Message is a rendered digest ready to send.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Transport delivers a message through one endpoint.
type Transport interface {
	Send(ctx context.Context, ep Endpoint, user, password string, msg Message) error
}

// Mailer sends the daily digest.
type Mailer struct {
	cfg       types.EmailConfig
	transport Transport
	now       func() time.Time
	log       zerolog.Logger
}

// New returns a Mailer that delivers through transport. A nil transport uses
// SMTPTransport with the default timeout.
func New(cfg types.EmailConfig, transport Transport, log zerolog.Logger) *Mailer {
	if transport == nil {
		transport = &SMTPTransport{}
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	return &Mailer{
		cfg:       cfg,
		transport: transport,
		now:       time.Now,
		log:       log.With().Str("component", "mailer").Logger(),
	}
}

// Server returns the SMTP host and port to start from: the configured
// host (port 465 when unset) or the one inferred from the sender.
func (m *Mailer) Server() (string, int) {
	if h := strings.TrimSpace(m.cfg.SMTPHost); h != "" {
		port := m.cfg.SMTPPort
		if port == 0 {
			port = 465
		}
		return h, port
	}
	return InferSMTP(m.cfg.User)
}

// Send delivers the digest for papers. Skipped sends (nothing to send,
// missing credentials or recipients) are logged and return nil. The
// returned bool reports whether a message was sent.
func (m *Mailer) Send(ctx context.Context, papers []types.Paper) (bool, error) {
	if len(papers) == 0 && !m.cfg.SendEmpty {
		m.log.Info().Msg("no papers to send and send_empty is false, skipping email")
		return false, nil
	}
	if m.cfg.User == "" || m.cfg.Password == "" {
		m.log.Error().Msg("mail credentials not found, skipping email")
		return false, nil
	}
	if len(m.cfg.Recipients) == 0 {
		m.log.Error().Msg("mail recipients not found, skipping email")
		return false, nil
	}

	now := m.now()
	date := now.Format("2006-01-02")
	html, err := Render(DigestData{SubjectPrefix: m.cfg.SubjectPrefix, Date: date, Papers: papers})
	if err != nil {
		return false, err
	}
	msg := Message{
		From:    m.cfg.User,
		To:      m.cfg.Recipients,
		Subject: Subject(m.cfg.SubjectPrefix, now, len(papers)),
		HTML:    html,
	}

	host, port := m.Server()
	var tried []string
	for _, ep := range Attempts(host, port) {
		tried = append(tried, ep.String())
		m.log.Info().Str("endpoint", ep.String()).Msg("connecting to SMTP server")
		if err := m.transport.Send(ctx, ep, m.cfg.User, m.cfg.Password, msg); err != nil {
			m.log.Warn().Err(err).Str("endpoint", ep.String()).Msg("SMTP attempt failed")
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			continue
		}
		m.log.Info().Strs("recipients", m.cfg.Recipients).Int("papers", len(papers)).Msg("email sent")
		return true, nil
	}
	return false, fmt.Errorf("%w: %s", ErrAllAttemptsFailed, strings.Join(tried, ", "))
}

// InferSMTP maps the sender's domain to a well-known SMTP server.
// Unknown domains fall back to smtp.qq.com:465.
func InferSMTP(addr string) (string, int) {
	var domain string
	if _, d, ok := strings.Cut(addr, "@"); ok {
		domain = strings.ToLower(strings.TrimSpace(d))
	}
	switch domain {
	case "qq.com", "foxmail.com":
		return "smtp.qq.com", 465
	case "gmail.com":
		return "smtp.gmail.com", 465
	case "outlook.com", "hotmail.com", "live.com", "office365.com":
		return "smtp.office365.com", 587
	default:
		return "smtp.qq.com", 465
	}
}

// Attempts returns the connection attempts for host and port, in order.
func Attempts(host string, port int) []Endpoint {
	switch port {
	case 465:
		return []Endpoint{{host, 465, ModeSSL}, {host, 587, ModeSTARTTLS}}
	case 587:
		return []Endpoint{{host, 587, ModeSTARTTLS}, {host, 465, ModeSSL}}
	default:
		return []Endpoint{{host, port, ModeSSL}, {host, port, ModeSTARTTLS}}
	}
}
