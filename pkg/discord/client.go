package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/config"
	"github.com/hazelline/communitybot-backend/pkg/logger"
)

var (
	errBotTokenRequired  = errors.New("discord bot token is required")
	errBotUserIDRequired = errors.New("discord bot user id is required")
	errLoggerRequired    = errors.New("discord logger is required")
)

// Client is a minimal messaging-gateway REST client: fetch, send, edit and
// delete messages on channels the bot can see. It deliberately implements
// nothing else of the Discord API surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	botUserID  int64
	logger     *logger.Logger
}

// NewClient initializes the gateway wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.DiscordConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, errBotTokenRequired
	}
	if cfg.BotUserID == 0 {
		return nil, errBotUserIDRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(cfg.APIBase, "/")
	if baseURL == "" {
		baseURL = "https://discord.com/api/v10"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
		botUserID:  cfg.BotUserID,
		logger:     logg,
	}

	logg.Info(ctx, "discord client initialized")
	return c, nil
}

// BotUserID returns the bot's own user id, used to recognize its mirrors.
func (c *Client) BotUserID() int64 {
	if c == nil {
		return 0
	}
	return c.botUserID
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("discord api: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether the error is a gateway 404 (deleted message,
// unknown channel).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Message fetches a single message including its live reaction counts.
func (c *Client) Message(ctx context.Context, channelID, messageID int64) (*Message, error) {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	var msg Message
	if err := c.do(ctx, http.MethodGet, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Send posts a new message to a channel and returns the created message.
func (c *Client) Send(ctx context.Context, channelID int64, payload SendMessage) (*Message, error) {
	path := fmt.Sprintf("/channels/%d/messages", channelID)
	var msg Message
	if err := c.do(ctx, http.MethodPost, path, payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Edit replaces the content/embeds of an existing message.
func (c *Client) Edit(ctx context.Context, channelID, messageID int64, payload EditMessage) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, channelID, messageID int64) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
