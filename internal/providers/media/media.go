// Package media fetches voice-note audio and estimates its duration.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Voice notes are OGG/Opus at roughly 16 kbit/s, so content length in bytes
// maps to seconds as size*8/16000. Used both for the pre-charge estimate and
// as the duration fallback when the file is already on disk.
const assumedBitrate = 16000.0

var extByContentType = map[string]string{
	"audio/ogg":  ".ogg",
	"audio/opus": ".ogg",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/aac":  ".aac",
	"audio/amr":  ".amr",
	"audio/wav":  ".wav",
	"audio/webm": ".webm",
}

// Fetcher downloads media and estimates durations.
type Fetcher struct {
	client   *http.Client
	username string
	password string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBasicAuth sets credentials sent on media requests. Twilio media URLs
// require the account SID and auth token.
func WithBasicAuth(username, password string) Option {
	return func(f *Fetcher) {
		f.username = username
		f.password = password
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: 60 * time.Second}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// EstimateMinutes issues a HEAD request and converts the reported content
// length to minutes at the assumed voice-note bitrate. It returns 0 when the
// size cannot be determined; callers substitute their configured fallback.
func (f *Fetcher) EstimateMinutes(ctx context.Context, mediaURL string) float64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		return 0
	}
	f.authorize(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ContentLength <= 0 {
		return 0
	}
	seconds := float64(resp.ContentLength) * 8 / assumedBitrate
	return seconds / 60
}

// Download fetches the media to a temp file and returns its path. The caller
// owns cleanup.
func (f *Fetcher) Download(ctx context.Context, mediaURL, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}
	f.authorize(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		contentType = ct
	}

	tmp, err := os.CreateTemp("", "mina-audio-*"+extFor(contentType))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// DurationSeconds estimates the duration of a downloaded file from its size.
func (f *Fetcher) DurationSeconds(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return float64(info.Size()) * 8 / assumedBitrate, nil
}

func (f *Fetcher) authorize(req *http.Request) {
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}
}

func extFor(contentType string) string {
	base := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if ext, ok := extByContentType[strings.ToLower(base)]; ok {
		return ext
	}
	return ".ogg"
}
