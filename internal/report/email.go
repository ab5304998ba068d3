package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Attachment is a file attached to the digest email
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Email is a composed digest message
type Email struct {
	From        string
	To          []string
	Subject     string
	Text        string
	HTML        string
	Date        time.Time
	Attachments []Attachment
}

// BuildEmail assembles the digest email with the summary CSV attached
func BuildEmail(d *Digest, from string, to []string, csvData []byte, now time.Time) (*Email, error) {
	html, err := HTML(d)
	if err != nil {
		return nil, err
	}
	return &Email{
		From:    from,
		To:      to,
		Subject: Subject(d),
		Text:    PlainText(d),
		HTML:    html,
		Date:    now,
		Attachments: []Attachment{{
			Filename:    AttachmentName(now),
			ContentType: "text/csv",
			Data:        csvData,
		}},
	}, nil
}

// Compose renders the email as a MIME message: a text/html alternative plus attachments
func Compose(e *Email) ([]byte, error) {
	var h mail.Header
	h.SetDate(e.Date)
	h.SetSubject(e.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: e.From}})
	to := make([]*mail.Address, 0, len(e.To))
	for _, addr := range e.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}
	if err := writeInline(tw, "text/plain", e.Text); err != nil {
		return nil, err
	}
	if e.HTML != "" {
		if err := writeInline(tw, "text/html", e.HTML); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	for _, a := range e.Attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType(a.ContentType, nil)
		ah.SetFilename(a.Filename)
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", a.Filename, err)
		}
		if _, err := w.Write(a.Data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeInline(tw *mail.InlineWriter, contentType, body string) error {
	var th mail.InlineHeader
	th.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

// Sender delivers a composed email
type Sender interface {
	Send(ctx context.Context, e *Email) error
}

// TransportError is a failed delivery. It is reported, never fatal.
type TransportError struct {
	Host  string
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp %s %s: %v", e.Host, e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// SMTPSender delivers mail through an authenticated SMTP server. Port 465 uses implicit
// TLS; other ports upgrade with STARTTLS when the server offers it.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the default TLS settings
	TLSConfig *tls.Config
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, e *Email) error {
	msg, err := Compose(e)
	if err != nil {
		return err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	fail := func(op string, err error) error {
		return &TransportError{Host: s.Host, Op: op, Cause: err}
	}

	if s.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig()); err != nil {
				return fail("starttls", err)
			}
		}
	}
	if s.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", s.Username, s.Password)); err != nil {
			return fail("auth", err)
		}
	}
	if err := client.Mail(e.From, nil); err != nil {
		return fail("mail from", err)
	}
	for _, to := range e.To {
		if err := client.Rcpt(to, nil); err != nil {
			return fail("rcpt to", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fail("data", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fail("data", err)
	}
	if err := w.Close(); err != nil {
		return fail("data", err)
	}
	if err := client.Quit(); err != nil {
		return fail("quit", err)
	}
	return nil
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	if s.TLSConfig != nil {
		return s.TLSConfig
	}
	return &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	dialer := &net.Dialer{}

	var conn net.Conn
	var err error
	if s.Port == 465 {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, &TransportError{Host: s.Host, Op: "dial", Cause: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client := smtp.NewClient(conn)
	if err := client.Hello("localhost"); err != nil {
		_ = client.Close()
		return nil, &TransportError{Host: s.Host, Op: "handshake", Cause: err}
	}
	return client, nil
}
