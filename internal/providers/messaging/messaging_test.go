package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessagePostsForm(t *testing.T) {
	var got struct {
		to, from, body string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.to = r.PostFormValue("To")
		got.from = r.PostFormValue("From")
		got.body = r.PostFormValue("Body")
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender("AC123", "token", "whatsapp:+14155238886",
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	err := s.SendMessage(context.Background(), "whatsapp:+919876543210", "hello")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+919876543210", got.to)
	assert.Equal(t, "whatsapp:+14155238886", got.from)
	assert.Equal(t, "hello", got.body)
}

func TestSendMessageSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewTwilioSender("AC123", "bad", "whatsapp:+14155238886",
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	assert.Error(t, s.SendMessage(context.Background(), "whatsapp:+919876543210", "hello"))
}

func TestSplitMessage(t *testing.T) {
	short := "minutes"
	assert.Equal(t, []string{short}, splitMessage(short))

	long := strings.Repeat("line of minutes text\n", 200)
	chunks := splitMessage(long)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), maxMessageLen)
	}
	// No content lost beyond the separators trimmed at the cut points.
	assert.Equal(t, strings.ReplaceAll(long, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}

func TestSplitMessageKeepsRunesIntact(t *testing.T) {
	// No newlines anywhere, so the cut lands mid-text; it must back off to
	// a rune boundary instead of splitting a multi-byte character.
	long := strings.Repeat("बैठक का सारांश ", 200)
	chunks := splitMessage(long)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), maxMessageLen)
		assert.True(t, utf8.ValidString(chunk), "chunk split a rune: %q", chunk[:16])
	}
	assert.Equal(t, long, strings.Join(chunks, ""))
}
