// Package client provides an HTTP client for the consultation translation service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/medconsult-go/internal/metrics"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

const requestIDHeader = "X-Request-ID"

// Client is an HTTP/JSON client for the consultation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped with request logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records per-operation timings into collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// New creates a new service client.
// If baseURL is empty, DefaultBaseURL is used. Timeout applies to every request (0 disables it).
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	wrapped := *c.httpClient
	wrapped.Transport = newLoggingTransport(c.httpClient.Transport, c.logger)
	c.httpClient = &wrapped

	return c
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the FastAPI error envelope.
type errorBody struct {
	Detail any `json:"detail"`
}

// send issues a request and returns the response for a 2xx status.
// The caller must close the body.
func (c *Client) send(ctx context.Context, op, method, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(requestIDHeader, uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &APIError{
			Op:         op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
		}
	}

	return resp, nil
}

// do sends a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, result any) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordTiming(op, time.Since(start), err != nil)
		}
	}()

	resp, err := c.send(ctx, op, method, c.baseURL+path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(op, fmt.Errorf("read response: %w", err))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return decodeError(op, fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, result any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(reqBody)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, contentType, body, result)
}

// errorDetail extracts a readable message from an error response body.
func errorDetail(data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Detail != nil {
		if s, ok := eb.Detail.(string); ok {
			return truncate(s, maxDetailLen)
		}
		if b, err := json.Marshal(eb.Detail); err == nil {
			return truncate(string(b), maxDetailLen)
		}
	}
	return truncate(strings.TrimSpace(string(data)), maxDetailLen)
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// CreateConversationInput is the input for creating a conversation.
type CreateConversationInput struct {
	DoctorLanguage  string `json:"doctor_language"`
	PatientLanguage string `json:"patient_language"`
}

// CreateConversation creates a new conversation. A response without an
// identifier is reported as a decode error.
func (c *Client) CreateConversation(ctx context.Context, input CreateConversationInput) (*models.Conversation, error) {
	var conv models.Conversation
	if err := c.doJSON(ctx, metrics.OpCreateConversation, http.MethodPost, "/api/conversations", input, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, decodeError(metrics.OpCreateConversation, errors.New("response has no _id"))
	}
	return &conv, nil
}

// ListConversations returns the conversation history, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var result []models.ConversationSummary
	if err := c.doJSON(ctx, metrics.OpListConversations, http.MethodGet, "/api/conversations", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListMessages returns all messages of a conversation in chronological order.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"

	var result []models.Message
	if err := c.doJSON(ctx, metrics.OpListMessages, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateSummary asks the service to summarize a conversation.
func (c *Client) GenerateSummary(ctx context.Context, conversationID string) (*models.Summary, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/summary"

	var summary models.Summary
	if err := c.doJSON(ctx, metrics.OpGenerateSummary, http.MethodPost, path, nil, &summary); err != nil {
		return nil, err
	}
	summary.ConversationID = conversationID
	return &summary, nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// SendTextInput is the input for a text message.
type SendTextInput struct {
	ConversationID string      `json:"conversation_id"`
	SenderRole     models.Role `json:"sender_role"`
	Text           string      `json:"text"`
}

// SendText submits a text message and returns the translated record.
func (c *Client) SendText(ctx context.Context, input SendTextInput) (*models.Message, error) {
	var msg models.Message
	if err := c.doJSON(ctx, metrics.OpSendText, http.MethodPost, "/api/messages/text", input, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, decodeError(metrics.OpSendText, errors.New("response has no _id"))
	}
	return &msg, nil
}

// SendAudioInput is the input for an audio message.
type SendAudioInput struct {
	ConversationID string
	SenderRole     models.Role
	Filename       string
	ContentType    string
	Data           []byte
}

// SendAudio uploads a recording as multipart form data and returns the stored record.
func (c *Client) SendAudio(ctx context.Context, input SendAudioInput) (*models.Message, error) {
	body, contentType, err := encodeAudioForm(input)
	if err != nil {
		return nil, fmt.Errorf("%s: encode form: %w", metrics.OpSendAudio, err)
	}

	var msg models.Message
	if err := c.do(ctx, metrics.OpSendAudio, http.MethodPost, "/api/messages/audio", contentType, body, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, decodeError(metrics.OpSendAudio, errors.New("response has no _id"))
	}
	return &msg, nil
}

func encodeAudioForm(input SendAudioInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("conversation_id", input.ConversationID); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("sender_role", string(input.SenderRole)); err != nil {
		return nil, "", err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, input.Filename))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(input.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// =============================================================================
// AUDIO OPERATIONS
// =============================================================================

// DownloadAudio streams the audio referenced by a message's audio_url into w.
// Relative URLs are resolved against the base URL. Returns the content type and bytes written.
func (c *Client) DownloadAudio(ctx context.Context, audioURL string, w io.Writer) (contentType string, n int64, err error) {
	op := metrics.OpDownloadAudio
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordTiming(op, time.Since(start), err != nil)
		}
	}()

	target, err := c.resolve(audioURL)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(ctx, op, http.MethodGet, target, "", nil)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return "", n, networkError(op, fmt.Errorf("read audio: %w", err))
	}
	return resp.Header.Get("Content-Type"), n, nil
}

func (c *Client) resolve(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty audio url")
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse audio url: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}
