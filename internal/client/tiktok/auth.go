package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenResponse is the payload of the auth host's token endpoints.
type TokenResponse struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	AccessTokenExpireIn  int64  `json:"access_token_expire_in"`
	RefreshTokenExpireIn int64  `json:"refresh_token_expire_in"`
	OpenID               string `json:"open_id"`
	SellerName           string `json:"seller_name"`
	SellerBaseRegion     string `json:"seller_base_region"`
}

// ExchangeAuthCode trades an OAuth authorization code for a token pair.
// The token endpoint lives on a separate auth host and is not signed.
func (c *Client) ExchangeAuthCode(ctx context.Context, authCode string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("app_key", c.appKey)
	params.Set("app_secret", c.appSecret)
	params.Set("auth_code", authCode)
	params.Set("grant_type", "authorized_code")
	return c.tokenRequest(ctx, params)
}

// RefreshAccessToken trades a refresh token for a fresh token pair.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("app_key", c.appKey)
	params.Set("app_secret", c.appSecret)
	params.Set("refresh_token", refreshToken)
	params.Set("grant_type", "refresh_token")
	return c.tokenRequest(ctx, params)
}

func (c *Client) tokenRequest(ctx context.Context, params url.Values) (*TokenResponse, error) {
	if c.tokenURL == "" {
		return nil, fmt.Errorf("token url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	var env struct {
		Code    int           `json:"code"`
		Message string        `json:"message"`
		Data    TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if env.Code != 0 {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	return &env.Data, nil
}
