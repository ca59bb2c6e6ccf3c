// Package recognize talks to the audio fingerprint recognition service.
package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

var (
	// ErrService is returned when the service answers with an error payload.
	ErrService    = errors.New("recognition service error")
	ErrMissingURL = errors.New("a YouTube URL is required")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recognition service returned HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Result is the outcome of one recognition request.
type Result struct {
	Matched bool
	Name    string
	URL     string
	// Details is the service's raw match payload, when there is one.
	Details   json.RawMessage
	RequestID string
}

// Song is one entry of the service's library.
type Song struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Fingerprints int    `json:"fingerprints"`
	URL          string `json:"url,omitempty"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  zerolog.Logger
}

type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func New(cfg Config) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &Client{http: c, log: cfg.Logger}
}

type recognizeResponse struct {
	Error string          `json:"error"`
	Match json.RawMessage `json:"match"`
	Name  string          `json:"name"`
	URL   string          `json:"url"`
}

// Recognize posts a WAV clip as the request body.
func (c *Client) Recognize(ctx context.Context, wavData []byte) (*Result, error) {
	id := uuid.NewString()
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, id).
		SetHeader("Content-Type", "audio/wav").
		SetBody(wavData).
		Post("/recognize")
	if err != nil {
		return nil, fmt.Errorf("recognize request: %w", err)
	}

	var body recognizeResponse
	if jerr := json.Unmarshal(resp.Body(), &body); jerr != nil {
		if resp.IsError() {
			return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}
		return nil, fmt.Errorf("decode recognize response: %w", jerr)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrService, body.Error)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	match := bytes.TrimSpace(body.Match)
	result := &Result{
		Matched:   !bytes.Equal(match, []byte("null")) && (len(match) > 0 || body.Name != ""),
		RequestID: id,
	}
	if result.Matched {
		result.Name = body.Name
		result.URL = body.URL
		result.Details = match
	}

	c.log.Info().
		Str("request_id", id).
		Int("wav_bytes", len(wavData)).
		Bool("matched", result.Matched).
		Str("name", result.Name).
		Dur("latency", time.Since(start)).
		Msg("Recognition finished")
	return result, nil
}

// Songs lists the fingerprinted library.
func (c *Client) Songs(ctx context.Context) ([]Song, error) {
	var out struct {
		Songs []Song `json:"songs"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString()).
		SetResult(&out).
		Get("/songs")
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return out.Songs, nil
}

// AddYouTube asks the service to download and fingerprint a video. It
// returns the name the service stored the song under.
func (c *Client) AddYouTube(ctx context.Context, url, name string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", ErrMissingURL
	}

	var out struct {
		Name string `json:"name"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString()).
		SetBody(map[string]string{"url": url, "name": strings.TrimSpace(name)}).
		SetResult(&out).
		Post("/add-youtube")
	if err != nil {
		return "", fmt.Errorf("add song: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	c.log.Info().Str("url", url).Str("name", out.Name).Msg("Song added")
	return out.Name, nil
}
