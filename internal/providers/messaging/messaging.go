// Package messaging sends outbound WhatsApp messages through Twilio.
package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/smallbiznis/mina/internal/identity"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// WhatsApp messages are capped at 1600 characters; longer minutes are split
// into sequential chunks.
const maxMessageLen = 1600

// Sender delivers outbound messages. Delivery is best-effort: callers log
// failures and continue.
type Sender interface {
	SendMessage(ctx context.Context, toPhone, body string) error
}

type twilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// Option configures the Twilio sender.
type Option func(*twilioSender)

// WithBaseURL overrides the Twilio API base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *twilioSender) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *twilioSender) { s.httpClient = client }
}

func NewTwilioSender(accountSID, authToken, from string, opts ...Option) Sender {
	s := &twilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *twilioSender) SendMessage(ctx context.Context, toPhone, body string) error {
	for _, chunk := range splitMessage(body) {
		if err := s.send(ctx, toPhone, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *twilioSender) send(ctx context.Context, toPhone, body string) error {
	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", "whatsapp:+"+identity.Digits(toPhone))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("twilio send: status %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func splitMessage(body string) []string {
	if len(body) <= maxMessageLen {
		return []string{body}
	}
	var chunks []string
	for len(body) > maxMessageLen {
		cut := strings.LastIndex(body[:maxMessageLen], "\n")
		if cut <= 0 {
			// No newline to break at; back off to a rune boundary so a
			// multi-byte character is never split across chunks.
			cut = maxMessageLen
			for cut > 0 && !utf8.RuneStart(body[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxMessageLen
			}
		}
		chunks = append(chunks, strings.TrimRight(body[:cut], "\n"))
		body = strings.TrimLeft(body[cut:], "\n")
	}
	if body != "" {
		chunks = append(chunks, body)
	}
	return chunks
}
