// Package openai wraps the transcription and summarization endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smallbiznis/mina/internal/minutes"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client calls the OpenAI REST API directly.
type Client struct {
	apiKey          string
	transcribeModel string
	summarizeModel  string
	baseURL         string
	httpClient      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func NewClient(apiKey, transcribeModel, summarizeModel string, opts ...Option) *Client {
	c := &Client{
		apiKey:          apiKey,
		transcribeModel: transcribeModel,
		summarizeModel:  summarizeModel,
		baseURL:         defaultBaseURL,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads the audio file and returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", c.transcribeModel); err != nil {
		return "", err
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("transcription: decode response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

const summarizePrompt = `You produce meeting minutes from a voice note transcript. ` +
	`Respond with only a JSON object: {"summary": string, "bullets": [string], "participants": [string]}. ` +
	`Keep the summary to a few sentences. Leave participants empty if none are named.`

// Summarize turns a transcript into structured minutes. Models sometimes wrap
// the JSON in prose or code fences, so decoding falls back to the outermost
// brace pair.
func (c *Client) Summarize(ctx context.Context, transcript string) (minutes.Minutes, error) {
	payload := map[string]any{
		"model": c.summarizeModel,
		"messages": []map[string]string{
			{"role": "system", "content": summarizePrompt},
			{"role": "user", "content": transcript},
		},
		"temperature": 0.3,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return minutes.Minutes{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return minutes.Minutes{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return minutes.Minutes{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return minutes.Minutes{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return minutes.Minutes{}, fmt.Errorf("summarization: status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return minutes.Minutes{}, fmt.Errorf("summarization: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return minutes.Minutes{}, fmt.Errorf("summarization: empty choices")
	}
	return decodeMinutes(out.Choices[0].Message.Content)
}

func decodeMinutes(content string) (minutes.Minutes, error) {
	var m minutes.Minutes
	if err := json.Unmarshal([]byte(content), &m); err == nil {
		return m, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return minutes.Minutes{}, fmt.Errorf("summarization: no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &m); err != nil {
		return minutes.Minutes{}, fmt.Errorf("summarization: decode minutes: %w", err)
	}
	return m, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
