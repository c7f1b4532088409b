// Package razorpay implements the payment-provider collaborator against the
// Razorpay REST API and webhook format.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

type Adapter struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

type Option func(*Adapter)

func WithBaseURL(url string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(url, "/") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) { a.httpClient = client }
}

func New(keyID, keySecret, webhookSecret string, opts ...Option) *Adapter {
	a := &Adapter{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// VerifySignature checks base64(HMAC-SHA256(body, webhook_secret)) against
// the header value. An unconfigured secret fails closed.
func (a *Adapter) VerifySignature(payload []byte, headerSignature string) bool {
	if a.webhookSecret == "" {
		return false
	}
	headerSignature = strings.TrimSpace(headerSignature)
	if headerSignature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(headerSignature))
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		PaymentLink struct {
			Entity linkEntity `json:"entity"`
		} `json:"payment_link"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	Contact    string `json:"contact"`
	CustomerID string `json:"customer_id"`
}

type linkEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// ParseEvent decodes a webhook body into the normalized payment event. Event
// types this system does not act on return (nil, nil).
func (a *Adapter) ParseEvent(payload []byte) (*paymentdomain.Event, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	switch strings.TrimSpace(event.Event) {
	case "payment_link.paid", "payment.captured", "payment.authorized", "payment.failed":
	default:
		return nil, nil
	}

	entity := event.Payload.Payment.Entity
	if strings.TrimSpace(entity.ID) == "" {
		// payment_link events may only carry the link entity.
		link := event.Payload.PaymentLink.Entity
		if strings.TrimSpace(link.ID) == "" {
			return nil, paymentdomain.ErrInvalidEvent
		}
		return &paymentdomain.Event{
			TransactionID: link.ID,
			Amount:        link.Amount,
			Currency:      link.Currency,
			RawStatus:     link.Status,
			RawPayload:    payload,
		}, nil
	}

	out := &paymentdomain.Event{
		TransactionID: entity.ID,
		Contact:       entity.Contact,
		Amount:        entity.Amount,
		Currency:      entity.Currency,
		RawStatus:     entity.Status,
		RawPayload:    payload,
	}
	if ref := strings.TrimSpace(entity.CustomerID); ref != "" {
		out.CustomerRef = &ref
	}
	return out, nil
}

type createLinkRequest struct {
	Amount         int64        `json:"amount"`
	Currency       string       `json:"currency"`
	AcceptPartial  bool         `json:"accept_partial"`
	ReferenceID    string       `json:"reference_id"`
	Description    string       `json:"description"`
	Customer       linkCustomer `json:"customer"`
	Notify         linkNotify   `json:"notify"`
	ReminderEnable bool         `json:"reminder_enable"`
}

type linkCustomer struct {
	Contact string `json:"contact"`
}

type linkNotify struct {
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

type createLinkResponse struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}

// CreatePaymentLink issues a Razorpay payment link. The link is delivered to
// the user over WhatsApp by the caller, so provider-side notifications stay
// off.
func (a *Adapter) CreatePaymentLink(ctx context.Context, contact string, amount int64, currency, description string) (*paymentdomain.Link, error) {
	if a.keyID == "" || a.keySecret == "" {
		return nil, paymentdomain.ErrLinkUnavailable
	}

	body, err := json.Marshal(createLinkRequest{
		Amount:         amount,
		Currency:       currency,
		ReferenceID:    fmt.Sprintf("%s-%d", contact, time.Now().UTC().Unix()),
		Description:    description,
		Customer:       linkCustomer{Contact: contact},
		Notify:         linkNotify{},
		ReminderEnable: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/payment_links", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(a.keyID, a.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay payment link: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var link createLinkResponse
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("razorpay payment link: decode response: %w", err)
	}
	if link.ID == "" || link.ShortURL == "" {
		return nil, paymentdomain.ErrLinkUnavailable
	}

	return &paymentdomain.Link{
		TransactionID: link.ID,
		ShortURL:      link.ShortURL,
		Amount:        link.Amount,
		Status:        link.Status,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
