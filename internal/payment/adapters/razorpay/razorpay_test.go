package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	a := New("key", "secret", "whsec")
	payload := []byte(`{"event":"payment.captured"}`)

	assert.True(t, a.VerifySignature(payload, sign("whsec", payload)))
	assert.False(t, a.VerifySignature(payload, sign("other", payload)))
	assert.False(t, a.VerifySignature(payload, ""))
}

func TestVerifySignatureFailsClosedWithoutSecret(t *testing.T) {
	a := New("key", "secret", "")
	payload := []byte(`{}`)

	assert.False(t, a.VerifySignature(payload, sign("", payload)))
}

func TestParseEventCaptured(t *testing.T) {
	a := New("key", "secret", "whsec")
	payload := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_123",
					"amount": 49900,
					"currency": "INR",
					"status": "captured",
					"contact": "+919876543210",
					"customer_id": "cust_9"
				}
			}
		}
	}`)

	event, err := a.ParseEvent(payload)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "pay_123", event.TransactionID)
	assert.Equal(t, int64(49900), event.Amount)
	assert.Equal(t, "captured", event.RawStatus)
	assert.Equal(t, "+919876543210", event.Contact)
	require.NotNil(t, event.CustomerRef)
	assert.Equal(t, "cust_9", *event.CustomerRef)
}

func TestParseEventLinkPaidFallsBackToLinkEntity(t *testing.T) {
	a := New("key", "secret", "whsec")
	payload := []byte(`{
		"event": "payment_link.paid",
		"payload": {
			"payment_link": {
				"entity": {"id": "plink_7", "amount": 49900, "currency": "INR", "status": "paid"}
			}
		}
	}`)

	event, err := a.ParseEvent(payload)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "plink_7", event.TransactionID)
	assert.Equal(t, "paid", event.RawStatus)
}

func TestParseEventIgnoresUnhandledTypes(t *testing.T) {
	a := New("key", "secret", "whsec")

	event, err := a.ParseEvent([]byte(`{"event":"refund.created","payload":{}}`))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestParseEventInvalidJSON(t *testing.T) {
	a := New("key", "secret", "whsec")

	_, err := a.ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}

func TestCreatePaymentLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/payment_links", r.URL.Path)
		w.Write([]byte(`{"id":"plink_new","short_url":"https://rzp.io/l/abc","amount":49900,"status":"created"}`))
	}))
	defer srv.Close()

	a := New("key", "secret", "whsec", WithBaseURL(srv.URL))
	link, err := a.CreatePaymentLink(context.Background(), "919876543210", 49900, "INR", "subscription")
	require.NoError(t, err)
	assert.Equal(t, "plink_new", link.TransactionID)
	assert.Equal(t, "https://rzp.io/l/abc", link.ShortURL)
}

func TestCreatePaymentLinkWithoutCredentials(t *testing.T) {
	a := New("", "", "whsec")

	_, err := a.CreatePaymentLink(context.Background(), "919876543210", 49900, "INR", "subscription")
	assert.ErrorIs(t, err, paymentdomain.ErrLinkUnavailable)
}
