package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/models"
	"shopsync/internal/repository"
)

// ErrNoCredential means no usable upstream credential exists: no static
// token configured and no (refreshable) OAuth token stored.
var ErrNoCredential = errors.New("no tiktok credential available")

// TokenProvider yields a currently valid upstream access token.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenCipher encrypts token material at rest with AES-256-GCM. The key is
// derived from the configured secret via SHA-256, so any non-empty secret
// works.
type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, errors.New("encryption key is empty")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &TokenCipher{aead: aead}, nil
}

func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// TokenManager resolves the upstream credential: a static configured token
// wins, otherwise the stored OAuth token is decrypted and, when close to
// expiry, refreshed in place.
type TokenManager struct {
	Repo   repository.Repository
	Client *tiktok.Client
	Cipher *TokenCipher
	Logger *zap.Logger

	// StaticToken is an optional fixed credential from config, bypassing
	// the OAuth flow entirely.
	StaticToken string

	// Now is overridable in tests.
	Now func() time.Time
}

// expiryBuffer keeps us from handing out a token that dies mid-run.
const expiryBuffer = 5 * time.Minute

func (m *TokenManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	if m.StaticToken != "" {
		return m.StaticToken, nil
	}
	row, err := m.Repo.GetOAuthToken(ctx, "")
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", ErrNoCredential
	}
	if row.ExpiresAt.After(m.now().Add(expiryBuffer)) {
		return m.Cipher.Decrypt(row.AccessToken)
	}
	return m.refresh(ctx, row)
}

func (m *TokenManager) refresh(ctx context.Context, row *models.OAuthToken) (string, error) {
	refreshToken, err := m.Cipher.Decrypt(row.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}
	resp, err := m.Client.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	shopName := ""
	if row.ShopName != nil {
		shopName = *row.ShopName
	}
	if resp.SellerName != "" {
		shopName = resp.SellerName
	}
	if err := m.SaveTokens(ctx, resp, row.ShopID, shopName); err != nil {
		return "", err
	}
	if m.Logger != nil {
		m.Logger.Info("access token refreshed", zap.String("shop_id", row.ShopID))
	}
	return resp.AccessToken, nil
}

// SaveTokens encrypts and upserts a token pair for the shop.
func (m *TokenManager) SaveTokens(ctx context.Context, resp *tiktok.TokenResponse, shopID, shopName string) error {
	if resp == nil {
		return errors.New("nil token response")
	}
	encAccess, err := m.Cipher.Encrypt(resp.AccessToken)
	if err != nil {
		return err
	}
	encRefresh, err := m.Cipher.Encrypt(resp.RefreshToken)
	if err != nil {
		return err
	}
	expiresAt := m.now().Add(time.Duration(resp.AccessTokenExpireIn) * time.Second)
	// Some responses carry an absolute epoch instead of a TTL.
	if resp.AccessTokenExpireIn > 10_000_000 {
		expiresAt = time.Unix(resp.AccessTokenExpireIn, 0).UTC()
	}
	var namePtr *string
	if shopName != "" {
		namePtr = &shopName
	}
	return m.Repo.SaveOAuthToken(ctx, &models.OAuthToken{
		ShopID:       shopID,
		ShopName:     namePtr,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		ExpiresAt:    expiresAt,
	})
}

// AuthStatus summarizes the stored credential for the status endpoint.
type AuthStatus struct {
	Connected bool       `json:"connected"`
	Static    bool       `json:"static_token"`
	ShopID    string     `json:"shop_id,omitempty"`
	ShopName  string     `json:"shop_name,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (m *TokenManager) Status(ctx context.Context) (AuthStatus, error) {
	if m.StaticToken != "" {
		return AuthStatus{Connected: true, Static: true}, nil
	}
	row, err := m.Repo.GetOAuthToken(ctx, "")
	if err != nil {
		return AuthStatus{}, err
	}
	if row == nil {
		return AuthStatus{}, nil
	}
	status := AuthStatus{
		Connected: row.ExpiresAt.After(m.now()),
		ShopID:    row.ShopID,
		ExpiresAt: &row.ExpiresAt,
	}
	if row.ShopName != nil {
		status.ShopName = *row.ShopName
	}
	return status, nil
}
