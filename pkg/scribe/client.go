package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default halo backend base URL.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 60 * time.Second
)

// ErrNoConversation is returned by Summarize when the conversation text is
// empty or whitespace-only. The check runs before any network call.
var ErrNoConversation = errors.New("scribe: empty conversation")

// Client talks to a halo transcription backend, which exposes
// POST /transcribe (multipart audio → {"transcript": ...}) and
// POST /summary ({"messages": ...} → {"summary": ...}).
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ Transcriber = (*Client)(nil)
	_ Summarizer  = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Ignored if WithHTTPClient is
// also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.http == nil {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a client for the halo backend at baseURL.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimSuffix(baseURL, "/")}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	return c
}

// transcribeResponse mirrors the backend's /transcribe reply. A pointer
// distinguishes a missing transcript field from an empty transcript.
type transcribeResponse struct {
	Transcript *string `json:"transcript"`
}

// Transcribe submits one audio segment as a multipart upload and returns
// the recognized text verbatim. An empty transcript is success (no speech
// detected). Failures are reported as *Error with kind network, protocol,
// or empty-response; the client never retries.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return "", &Error{Op: "transcribe", Kind: KindProtocol, Msg: "build multipart body", Err: err}
	}
	if _, err := fw.Write(audio); err != nil {
		return "", &Error{Op: "transcribe", Kind: KindProtocol, Msg: "build multipart body", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Op: "transcribe", Kind: KindProtocol, Msg: "build multipart body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", &Error{Op: "transcribe", Kind: KindNetwork, Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "transcribe", Kind: KindNetwork, Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			Op:         "transcribe",
			Kind:       KindProtocol,
			HTTPStatus: resp.StatusCode,
			Msg:        "unexpected status " + resp.Status,
		}
	}

	var tr transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &Error{
			Op:         "transcribe",
			Kind:       KindProtocol,
			HTTPStatus: resp.StatusCode,
			Msg:        "undecodable response body",
			Err:        err,
		}
	}
	if tr.Transcript == nil {
		return "", &Error{
			Op:         "transcribe",
			Kind:       KindEmptyResponse,
			HTTPStatus: resp.StatusCode,
			Msg:        "response has no transcript field",
		}
	}
	return *tr.Transcript, nil
}

// summaryRequest and summaryResponse mirror the backend's /summary exchange.
type summaryRequest struct {
	Messages string `json:"messages"`
}

type summaryResponse struct {
	Summary *string `json:"summary"`
}

// Summarize submits the newline-joined conversation transcript and returns
// the raw summary text, expected (but not required) to contain the
// "**Section:**" markers the chart parser consumes. Failures are *Error
// with kind network, http-status, or empty-response.
func (c *Client) Summarize(ctx context.Context, conversation string) (string, error) {
	if strings.TrimSpace(conversation) == "" {
		return "", ErrNoConversation
	}

	payload, err := json.Marshal(summaryRequest{Messages: conversation})
	if err != nil {
		return "", &Error{Op: "summarize", Kind: KindNetwork, Msg: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/summary", bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Op: "summarize", Kind: KindNetwork, Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "summarize", Kind: KindNetwork, Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Op:         "summarize",
			Kind:       KindHTTPStatus,
			HTTPStatus: resp.StatusCode,
			Msg:        "unexpected status " + resp.Status,
		}
	}

	var sr summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", &Error{
			Op:         "summarize",
			Kind:       KindEmptyResponse,
			HTTPStatus: resp.StatusCode,
			Msg:        "undecodable response body",
			Err:        err,
		}
	}
	if sr.Summary == nil || strings.TrimSpace(*sr.Summary) == "" {
		return "", &Error{
			Op:         "summarize",
			Kind:       KindEmptyResponse,
			HTTPStatus: resp.StatusCode,
			Msg:        "response has no summary content",
		}
	}
	return *sr.Summary, nil
}
