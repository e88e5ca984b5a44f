// Package telegram is a thin hand-written client for the Telegram Bot API,
// covering the three calls the notification worker needs: getChat (direct
// handle resolution), getUpdates (fallback scan), and sendMessage.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

const (
	defaultBaseURL     = "https://api.telegram.org"
	defaultHTTPTimeout = 15 * time.Second
)

// Config holds the bot credentials. BaseURL is overridable for tests.
type Config struct {
	BotToken string
	BaseURL  string
	Timeout  time.Duration
}

// Client talks to the Bot API. It is constructed per worker instance and
// injected — no package-level bot handle.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// apiResponse is the Bot API envelope shared by every method.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type chat struct {
	ID int64 `json:"id"`
}

type update struct {
	Message *struct {
		Chat chat `json:"chat"`
		From *struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// ChatID resolves a handle directly via getChat. A handle Telegram does not
// know yields domain.ErrChatNotFound, the recoverable miss that triggers the
// caller's fallback.
func (c *Client) ChatID(ctx context.Context, username string) (int64, error) {
	params := url.Values{"chat_id": {canonicalHandle(username)}}
	raw, err := c.call(ctx, "getChat", params)
	if err != nil {
		return 0, err
	}

	var ch chat
	if err := json.Unmarshal(raw, &ch); err != nil {
		return 0, fmt.Errorf("parse getChat result: %w", err)
	}
	return ch.ID, nil
}

// RecentChatID scans the bot's recent updates for a message sent by the
// handle and returns that message's originating chat. This is the second
// resolution stage: a user who has messaged the bot is reachable even when
// getChat cannot see their handle.
func (c *Client) RecentChatID(ctx context.Context, username string) (int64, error) {
	raw, err := c.call(ctx, "getUpdates", url.Values{})
	if err != nil {
		return 0, err
	}

	var updates []update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return 0, fmt.Errorf("parse getUpdates result: %w", err)
	}

	want := strings.TrimPrefix(username, "@")
	for _, u := range updates {
		if u.Message == nil || u.Message.From == nil {
			continue
		}
		if u.Message.From.Username == want {
			return u.Message.Chat.ID, nil
		}
	}
	return 0, domain.ErrChatNotFound
}

// SendMessage delivers text to a resolved chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	_, err := c.call(ctx, "sendMessage", params)
	return err
}

// call performs one Bot API request and unwraps the response envelope.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.BotToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", method, err)
	}
	if !ar.OK {
		if strings.Contains(strings.ToLower(ar.Description), "not found") {
			return nil, domain.ErrChatNotFound
		}
		return nil, fmt.Errorf("%s: %s", method, ar.Description)
	}
	return ar.Result, nil
}

// canonicalHandle ensures the @ prefix getChat expects for usernames.
func canonicalHandle(username string) string {
	if strings.HasPrefix(username, "@") {
		return username
	}
	return "@" + username
}

var _ ports.MessengerClient = (*Client)(nil)
