package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/zealmehta21/nevermiss/internal/task"
)

// Sender delivers one message to one address.
type Sender interface {
	Send(ctx context.Context, to string, msg *Message) error
}

// Notifier renders digests and hands them to a Sender.
type Notifier struct {
	sender Sender
}

// New returns a Notifier that delivers through sender.
func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends the "list updated" digest for tasks to email.
func (n *Notifier) Notify(ctx context.Context, email string, tasks []task.Task) error {
	msg, err := UpdateDigest(tasks)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, msg)
}

// Daily sends the daily digest for tasks to email, as seen from now in loc.
func (n *Notifier) Daily(ctx context.Context, email string, tasks []task.Task, now time.Time, loc *time.Location) error {
	msg, err := DailyDigest(tasks, now, loc)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email, msg)
}

// LogSender is used when email is not configured. It only logs.
type LogSender struct {
	Logger *log.Logger
}

// Send logs the skipped message.
func (s LogSender) Send(ctx context.Context, to string, msg *Message) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("Email configuration not set, skipping email send to %s: %q", to, msg.Subject)
	return nil
}

// buildMIME renders msg as an RFC 5322 multipart/alternative message.
func buildMIME(from, to string, msg *Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
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

	var out bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&out, "%s: %s\r\n", k, v) }
	if from != "" {
		header("From", from)
	}
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// validAddress rejects header injection in a recipient.
func validAddress(to string) bool {
	return to != "" && !strings.ContainsAny(to, "\r\n")
}
