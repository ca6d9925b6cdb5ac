// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds one SMTP attempt, from dial to QUIT.
const DefaultTimeout = 20 * time.Second

// SMTPTransport sends mail with net/smtp using PLAIN auth.
type SMTPTransport struct {
	Timeout time.Duration

	// TLSConfig is cloned for each connection; ServerName is set to the
	// endpoint host when empty.
	TLSConfig *tls.Config
}

// Send dials ep, authenticates and delivers msg. A failure after the
// message was accepted (e.g. on QUIT) is not an error.
func (t *SMTPTransport) Send(ctx context.Context, ep Endpoint, user, password string, msg Message) error {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
	tlsConfig := t.tlsConfig(ep.Host)
	dialer := &net.Dialer{Deadline: deadline}

	var conn net.Conn
	var err error
	switch ep.Mode {
	case ModeSSL:
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	case ModeSTARTTLS:
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	default:
		return fmt.Errorf("unknown SMTP mode %q", ep.Mode)
	}
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, ep.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP handshake with %s: %w", addr, err)
	}
	defer c.Close()

	if ep.Mode == ModeSTARTTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return fmt.Errorf("%s does not support STARTTLS", addr)
		}
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS with %s: %w", addr, err)
		}
	}

	if err := c.Auth(smtp.PlainAuth("", user, password, ep.Host)); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(BuildMessage(msg, time.Now())); err != nil {
		w.Close()
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}

	// The message is accepted at this point.
	_ = c.Quit()
	return nil
}

func (t *SMTPTransport) tlsConfig(host string) *tls.Config {
	var cfg *tls.Config
	if t.TLSConfig != nil {
		cfg = t.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// BuildMessage encodes msg as a MIME message with a quoted-printable
// HTML body.
func BuildMessage(msg Message, date time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&b)
	qp.Write([]byte(msg.HTML))
	qp.Close()
	return b.Bytes()
}
