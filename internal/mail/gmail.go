package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"expensetracker/internal/notify"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender delivers notifications through the Gmail users.messages.send API.
type GmailSender struct {
	svc  *gmail.Service
	from string
}

var _ notify.Dispatcher = (*GmailSender)(nil)

// NewGmailSender builds a Gmail client authorized by creds. Each request
// refreshes the access token when it has expired.
func NewGmailSender(ctx context.Context, creds *CredentialProvider, from string) (*GmailSender, error) {
	ts, err := creds.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	client := oauth2.NewClient(base, oauth2.ReuseTokenSource(nil, ts))

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	slog.InfoContext(ctx, "Gmail sender ready", "from", from)
	return NewGmailSenderWithService(svc, from), nil
}

func NewGmailSenderWithService(svc *gmail.Service, from string) *GmailSender {
	return &GmailSender{svc: svc, from: from}
}

func (s *GmailSender) Send(ctx context.Context, n notify.Notification) error {
	raw, err := buildMessage(s.from, n)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := s.svc.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send to %s: %w", n.To, credentialError(ctx, err))
	}

	slog.InfoContext(ctx, "Email sent",
		"message_id", sent.Id,
		"notification_id", n.ID,
		"to", n.To,
		"kind", n.Kind)
	return nil
}

// buildMessage renders n as a multipart/alternative RFC 5322 message with a
// plain text part followed by the HTML part.
func buildMessage(from string, n notify.Notification) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", n.Text},
		{"text/html; charset=utf-8", n.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", p.contentType)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", n.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// newHTTPClientWithPooling returns the transport used under the OAuth2
// client for Gmail API calls.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
