package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailMailer sends through the Gmail API as the authorized account ("me").
type GmailMailer struct {
	svc  *gmail.Service
	from string
}

// NewGmailMailer wraps an OAuth-authorized HTTP client.
func NewGmailMailer(ctx context.Context, httpClient *http.Client, from string) (*GmailMailer, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &GmailMailer{svc: svc, from: from}, nil
}

func (m *GmailMailer) Send(ctx context.Context, msg Message) (bool, error) {
	if strings.TrimSpace(msg.To) == "" {
		return false, errors.New("mail: empty recipient")
	}
	raw := base64.URLEncoding.EncodeToString(buildRFC822(m.from, msg))
	// Sent at most once. A failed send is reported, never repeated.
	_, err := m.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			return false, fmt.Errorf("gmail send rejected (%d): %s", gErr.Code, gErr.Message)
		}
		return false, fmt.Errorf("gmail send: %w", err)
	}
	return true, nil
}

// buildRFC822 renders a minimal single-part HTML message. Header values are
// stripped of line breaks so user text cannot inject headers.
func buildRFC822(from string, msg Message) []byte {
	clean := strings.NewReplacer("\r", "", "\n", "")
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", clean.Replace(from))
	fmt.Fprintf(&b, "To: %s\r\n", clean.Replace(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", clean.Replace(msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return b.Bytes()
}
