package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateMinutesFromContentLength(t *testing.T) {
	// 120000 bytes at 16 kbit/s is 60 seconds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "120000")
	}))
	defer srv.Close()

	f := NewFetcher(WithHTTPClient(srv.Client()))
	got := f.EstimateMinutes(context.Background(), srv.URL+"/note.ogg")
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestEstimateMinutesUnknownSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(WithHTTPClient(srv.Client()))
	assert.Zero(t, f.EstimateMinutes(context.Background(), srv.URL))
}

func TestDownloadWritesTempFile(t *testing.T) {
	body := []byte("fake audio bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(WithHTTPClient(srv.Client()), WithBasicAuth("AC123", "token"))
	path, err := f.Download(context.Background(), srv.URL+"/media", "")
	require.NoError(t, err)
	defer os.Remove(path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	seconds, err := f.DurationSeconds(path)
	require.NoError(t, err)
	assert.InDelta(t, float64(len(body))*8/16000, seconds, 1e-9)
}

func TestExtForContentType(t *testing.T) {
	assert.Equal(t, ".ogg", extFor("audio/ogg; codecs=opus"))
	assert.Equal(t, ".mp3", extFor("audio/mpeg"))
	assert.Equal(t, ".m4a", extFor("audio/mp4"))
	assert.Equal(t, ".ogg", extFor("application/octet-stream"))
}
