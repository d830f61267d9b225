package tiktok

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to the TikTok Shop open API. Every request is signed with
// HMAC-SHA256 over the path, the sorted query parameters and the body,
// wrapped with the app secret on both sides.
type Client struct {
	host        string
	tokenURL    string
	appKey      string
	appSecret   string
	shopID      string
	shopCipher  string
	accessToken string
	httpClient  *http.Client

	maxRetries    int
	retryInterval time.Duration
	retryMaxWait  time.Duration
}

type Options struct {
	BaseURL       string
	TokenURL      string
	AppKey        string
	AppSecret     string
	ShopID        string
	ShopCipher    string
	AccessToken   string
	MaxRetries    int
	RetryInterval time.Duration
	RetryMaxWait  time.Duration
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	host := opts.BaseURL
	if host == "" {
		host = "https://open-api.tiktokglobalshop.com"
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 5
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	maxWait := opts.RetryMaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &Client{
		host:          host,
		tokenURL:      opts.TokenURL,
		appKey:        opts.AppKey,
		appSecret:     opts.AppSecret,
		shopID:        opts.ShopID,
		shopCipher:    opts.ShopCipher,
		accessToken:   opts.AccessToken,
		httpClient:    httpClient,
		maxRetries:    retries,
		retryInterval: interval,
		retryMaxWait:  maxWait,
	}
}

// WithAccessToken returns a shallow copy bound to the given token, so one
// client can serve requests for tokens loaded per call.
func (c *Client) WithAccessToken(token string) *Client {
	clone := *c
	clone.accessToken = token
	return &clone
}

// APIError is a non-2xx HTTP response or a non-zero envelope code from the
// upstream API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tiktok api error (http %d, code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("tiktok api error (http %d): %s", e.Status, e.Message)
}

// Retriable reports whether the failure is transient: rate limiting or a
// server-side error. Auth and validation failures are permanent.
func (e *APIError) Retriable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// stringToSign builds the canonical string the signature covers: the API
// path, then each query parameter as keyvalue in key order, then the raw
// request body.
func stringToSign(path string, params url.Values, body string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || k == "access_token" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(path)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	b.WriteString(body)
	return b.String()
}

func (c *Client) sign(path string, params url.Values, body string) string {
	wrapped := c.appSecret + stringToSign(path, params, body) + c.appSecret
	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write([]byte(wrapped))
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest issues one signed request with bounded exponential backoff on
// transient failures. The caller's query params are merged with the common
// app_key/timestamp/sign parameters.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("app_key", c.appKey)

	bodyStr := ""
	if method == http.MethodPost {
		// POST always signs a body, an empty one included.
		bodyStr = "{}"
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request body: %w", err)
			}
			bodyStr = string(payload)
		}
	}

	params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	params.Set("sign", c.sign(path, params, bodyStr))
	// The access token is excluded from the signature; it rides in the query
	// string and the x-tts-access-token header.
	if c.accessToken != "" {
		params.Set("access_token", c.accessToken)
	}

	fullURL := c.host + path + "?" + params.Encode()

	policy := backoff.WithContext(c.backoffPolicy(), ctx)
	var data json.RawMessage
	op := func() error {
		var reader io.Reader
		if method == http.MethodPost {
			reader = bytes.NewReader([]byte(bodyStr))
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.accessToken != "" {
			req.Header.Set("x-tts-access-token", c.accessToken)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
			if !apiErr.Retriable() {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if env.Code != 0 {
			return backoff.Permanent(&APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message})
		}
		data = env.Data
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) backoffPolicy() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = c.retryMaxWait
	bo.MaxElapsedTime = 0
	return backoff.WithMaxRetries(bo, uint64(c.maxRetries))
}

func (c *Client) shopParams(params url.Values) url.Values {
	if params == nil {
		params = url.Values{}
	}
	if c.shopCipher != "" {
		params.Set("shop_cipher", c.shopCipher)
	}
	if c.shopID != "" {
		params.Set("shop_id", c.shopID)
	}
	return params
}

// GetAuthorizedShops lists the shops the current token is authorized for.
// Useful as a cheap credential check.
func (c *Client) GetAuthorizedShops(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/authorization/202309/shops", nil, nil)
}
