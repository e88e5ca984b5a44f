// Package oauth implements the federated identity provider client.
// Yandex OAuth resolves an authorization code into a verified email through
// two calls: the token exchange and the user-info fetch.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

const (
	defaultAuthorizeURL = "https://oauth.yandex.ru/authorize"
	defaultTokenURL     = "https://oauth.yandex.ru/token"
	defaultUserInfoURL  = "https://login.yandex.ru/info"

	defaultHTTPTimeout = 10 * time.Second
)

// YandexConfig holds the provider credentials. The endpoint URLs are
// overridable so tests can point the client at a local server.
type YandexConfig struct {
	ClientID     string
	ClientSecret string

	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	Timeout      time.Duration
}

// YandexProvider exchanges authorization codes with Yandex OAuth.
type YandexProvider struct {
	cfg    YandexConfig
	client *http.Client
}

func NewYandexProvider(cfg YandexConfig) *YandexProvider {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = defaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &YandexProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// AuthorizeURL builds the URL a browser is sent to for the code grant.
func (p *YandexProvider) AuthorizeURL() string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {p.cfg.ClientID},
	}
	return p.cfg.AuthorizeURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type userInfoResponse struct {
	DefaultEmail string `json:"default_email"`
}

// ResolveEmail exchanges the authorization code for an access token and
// fetches the account's default email. Provider-side rejections surface as
// domain.ErrProviderAuth; there is no retry, so a provider outage fails the
// login attempt outright.
func (p *YandexProvider) ResolveEmail(ctx context.Context, code string) (string, error) {
	token, err := p.exchangeCode(ctx, code)
	if err != nil {
		return "", err
	}

	email, err := p.fetchEmail(ctx, token)
	if err != nil {
		return "", err
	}
	return email, nil
}

func (p *YandexProvider) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrProviderAuth, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrProviderAuth)
	}
	return tr.AccessToken, nil
}

func (p *YandexProvider) fetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("user info request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: user info endpoint returned %d", domain.ErrProviderAuth, resp.StatusCode)
	}

	var ui userInfoResponse
	if err := json.Unmarshal(body, &ui); err != nil {
		return "", fmt.Errorf("parse user info response: %w", err)
	}
	if ui.DefaultEmail == "" {
		return "", fmt.Errorf("%w: no default email on provider account", domain.ErrProviderAuth)
	}
	return ui.DefaultEmail, nil
}

var _ ports.IdentityProvider = (*YandexProvider)(nil)
