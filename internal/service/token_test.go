package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/models"
)

func TestTokenCipher_RoundTrip(t *testing.T) {
	c, err := NewTokenCipher("test-secret")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	enc, err := c.Encrypt("hello token")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc == "hello token" {
		t.Fatalf("ciphertext equals plaintext")
	}
	dec, err := c.Decrypt(enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if dec != "hello token" {
		t.Fatalf("dec=%q", dec)
	}
	if _, err := c.Decrypt("not-base64!!"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := NewTokenCipher(""); err == nil {
		t.Fatalf("empty key must be rejected")
	}
}

func TestTokenManager_StaticTokenWins(t *testing.T) {
	m := &TokenManager{StaticToken: "static-tok"}
	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if tok != "static-tok" {
		t.Fatalf("tok=%q", tok)
	}
}

func TestTokenManager_NoCredential(t *testing.T) {
	m := &TokenManager{Repo: newStubRepo()}
	_, err := m.AccessToken(context.Background())
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err=%v want ErrNoCredential", err)
	}
}

func TestTokenManager_StoredToken(t *testing.T) {
	cipher, err := NewTokenCipher("k")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	enc, _ := cipher.Encrypt("db-token")
	repo := newStubRepo()
	repo.token = &models.OAuthToken{
		ShopID:      "shop-1",
		AccessToken: enc,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	m := &TokenManager{Repo: repo, Cipher: cipher}
	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if tok != "db-token" {
		t.Fatalf("tok=%q", tok)
	}
}

func TestTokenManager_RefreshesExpiring(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type=%q", r.URL.Query().Get("grant_type"))
		}
		if r.URL.Query().Get("refresh_token") != "old-refresh" {
			t.Errorf("refresh_token=%q", r.URL.Query().Get("refresh_token"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"data":{"access_token":"fresh","refresh_token":"fresh-refresh","access_token_expire_in":7200,"seller_name":"My Shop"}}`))
	}))
	defer srv.Close()

	cipher, err := NewTokenCipher("k")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	encAccess, _ := cipher.Encrypt("stale")
	encRefresh, _ := cipher.Encrypt("old-refresh")
	repo := newStubRepo()
	repo.token = &models.OAuthToken{
		ShopID:       "shop-1",
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		ExpiresAt:    time.Now().Add(time.Minute), // inside the refresh buffer
	}
	client := tiktok.NewClient(srv.Client(), tiktok.Options{
		BaseURL:   srv.URL,
		TokenURL:  srv.URL + "/api/token/refresh",
		AppKey:    "ak",
		AppSecret: "as",
	})
	m := &TokenManager{Repo: repo, Client: client, Cipher: cipher}

	tok, err := m.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if tok != "fresh" {
		t.Fatalf("tok=%q want fresh", tok)
	}
	// The rotated pair is stored encrypted.
	stored, _ := repo.GetOAuthToken(context.Background(), "")
	if stored.AccessToken == "fresh" {
		t.Fatalf("access token stored unencrypted")
	}
	dec, err := cipher.Decrypt(stored.AccessToken)
	if err != nil || dec != "fresh" {
		t.Fatalf("dec=%q err=%v", dec, err)
	}
	if stored.ShopName == nil || *stored.ShopName != "My Shop" {
		t.Fatalf("shop_name=%v", stored.ShopName)
	}
	if !stored.ExpiresAt.After(time.Now().Add(time.Hour)) {
		t.Fatalf("expires_at=%v not advanced", stored.ExpiresAt)
	}
}

func TestTokenManager_Status(t *testing.T) {
	repo := newStubRepo()
	m := &TokenManager{Repo: repo}
	status, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if status.Connected {
		t.Fatalf("no token should report disconnected")
	}

	m.StaticToken = "s"
	status, err = m.Status(context.Background())
	if err != nil || !status.Connected || !status.Static {
		t.Fatalf("status=%+v err=%v", status, err)
	}
}
