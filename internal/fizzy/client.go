// Package fizzy provides a client for the Fizzy ticketing API. The client
// covers the small surface this application needs: fetching a card, posting
// comments, and moving or closing cards after a form is completed.
package fizzy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Card is a Fizzy card as returned by the API.
type Card struct {
	ID          string  `json:"id"`
	Number      int     `json:"number"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Closed      bool    `json:"closed"`
	Column      *Column `json:"column,omitempty"`
	Board       Board   `json:"board"`
}

// Column identifies a board column.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Board identifies a Fizzy board.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment is a card comment as returned by the API.
type Comment struct {
	ID        string      `json:"id"`
	Body      CommentBody `json:"body"`
	CreatedAt string      `json:"created_at"`
}

// CommentBody carries both renderings of a comment.
type CommentBody struct {
	HTML      string `json:"html"`
	PlainText string `json:"plain_text"`
}

// APIError is a structured failure reported by the Fizzy API envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fizzy api error %s: %s", e.Code, e.Message)
}

// Client defines the operations this application performs against Fizzy.
type Client interface {
	GetCard(ctx context.Context, cardNumber int) (*Card, error)
	AddComment(ctx context.Context, cardNumber int, body string) (*Comment, error)
	MoveCard(ctx context.Context, cardNumber int, columnID string) error
	CloseCard(ctx context.Context, cardNumber int) error
}

type fizzyClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Fizzy API client. The base URL is the API root plus the
// account slug; all requests carry bearer-token auth and are bounded by the
// given timeout.
func NewClient(apiURL, account, token string, timeout time.Duration, logger *slog.Logger) Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &fizzyClient{
		baseURL:    fmt.Sprintf("%s/%s", apiURL, account),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// envelope is the Fizzy API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// do performs one API call and decodes the envelope. A successful envelope's
// data is unmarshalled into out when out is non-nil.
func (c *fizzyClient) do(ctx context.Context, method, path string, payload, out any) error {
	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fizzy request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode fizzy response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		if env.Error != nil {
			return env.Error
		}
		return &APIError{Code: "unknown", Message: fmt.Sprintf("request failed with status %d", resp.StatusCode)}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode fizzy response data: %w", err)
		}
	}
	return nil
}

// GetCard retrieves a single card by its number.
func (c *fizzyClient) GetCard(ctx context.Context, cardNumber int) (*Card, error) {
	var card Card
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/cards/%d.json", cardNumber), nil, &card); err != nil {
		c.logger.Error("failed to get card", "card", cardNumber, "error", err)
		return nil, err
	}
	return &card, nil
}

// AddComment posts a new comment on a card.
func (c *fizzyClient) AddComment(ctx context.Context, cardNumber int, body string) (*Comment, error) {
	var comment Comment
	payload := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/cards/%d/comments.json", cardNumber), payload, &comment); err != nil {
		c.logger.Error("failed to add comment", "card", cardNumber, "error", err)
		return nil, err
	}
	return &comment, nil
}

// MoveCard moves a card to another board column.
func (c *fizzyClient) MoveCard(ctx context.Context, cardNumber int, columnID string) error {
	payload := map[string]string{"column_id": columnID}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/cards/%d/column.json", cardNumber), payload, nil); err != nil {
		c.logger.Error("failed to move card", "card", cardNumber, "column", columnID, "error", err)
		return err
	}
	return nil
}

// CloseCard closes a card.
func (c *fizzyClient) CloseCard(ctx context.Context, cardNumber int) error {
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/cards/%d/close.json", cardNumber), nil, nil); err != nil {
		c.logger.Error("failed to close card", "card", cardNumber, "error", err)
		return err
	}
	return nil
}
