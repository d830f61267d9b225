package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/config"
	"shopsync/internal/service"
)

// AuthHandler implements the TikTok Shop OAuth flow: authorize-url hands the
// dashboard a redirect target, the seller approves on TikTok's side, and the
// callback exchanges the returned code for tokens stored encrypted.
type AuthHandler struct {
	Client *tiktok.Client
	Tokens *service.TokenManager
	Cfg    config.TikTokConfig

	// FrontendURL is where the callback redirects the browser back to.
	FrontendURL string

	mu     sync.Mutex
	states map[string]time.Time
}

// stateTTL bounds how long an issued OAuth state stays redeemable.
const stateTTL = 15 * time.Minute

func (h *AuthHandler) Register(r *gin.Engine) {
	g := r.Group("/api/auth")
	g.GET("/authorize-url", h.authorizeURL)
	g.GET("/callback", h.callback)
	g.GET("/status", h.status)
	g.GET("/shops", h.shops)
}

func (h *AuthHandler) authorizeURL(c *gin.Context) {
	if h.Cfg.AppKey == "" {
		Error(c, http.StatusServiceUnavailable, "app key not configured", nil)
		return
	}
	state := uuid.NewString()
	h.mu.Lock()
	if h.states == nil {
		h.states = make(map[string]time.Time)
	}
	now := time.Now()
	for s, issued := range h.states {
		if now.Sub(issued) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = now
	h.mu.Unlock()

	q := url.Values{}
	q.Set("app_key", h.Cfg.AppKey)
	q.Set("state", state)
	Ok(c, gin.H{"authorize_url": h.Cfg.AuthURL + "?" + q.Encode(), "state": state}, nil)
}

func (h *AuthHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	issued, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(issued) <= stateTTL
}

func (h *AuthHandler) callback(c *gin.Context) {
	if h.Client == nil || h.Tokens == nil {
		Error(c, http.StatusServiceUnavailable, "auth unavailable", nil)
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		Error(c, http.StatusBadRequest, "missing code", nil)
		return
	}
	if state := strings.TrimSpace(c.Query("state")); state == "" || !h.consumeState(state) {
		Error(c, http.StatusBadRequest, "invalid or expired state", nil)
		return
	}
	resp, err := h.Client.ExchangeAuthCode(c.Request.Context(), code)
	if err != nil {
		Error(c, upstreamStatus(err), err.Error(), nil)
		return
	}
	shopID := h.Cfg.ShopID
	if shopID == "" {
		shopID = resp.OpenID
	}
	if err := h.Tokens.SaveTokens(c.Request.Context(), resp, shopID, resp.SellerName); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if h.FrontendURL != "" {
		c.Redirect(http.StatusFound, h.FrontendURL+"?connected=true")
		return
	}
	Ok(c, gin.H{"connected": true, "shop_id": shopID}, nil)
}

// shops lists the shops the stored credential is authorized for, doubling
// as a live check that the token actually works upstream.
func (h *AuthHandler) shops(c *gin.Context) {
	if h.Client == nil || h.Tokens == nil {
		Error(c, http.StatusServiceUnavailable, "auth unavailable", nil)
		return
	}
	token, err := h.Tokens.AccessToken(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoCredential) {
			Error(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	raw, err := h.Client.WithAccessToken(token).GetAuthorizedShops(c.Request.Context())
	if err != nil {
		Error(c, upstreamStatus(err), err.Error(), nil)
		return
	}
	Ok(c, raw, nil)
}

func (h *AuthHandler) status(c *gin.Context) {
	if h.Tokens == nil {
		Error(c, http.StatusServiceUnavailable, "auth unavailable", nil)
		return
	}
	out, err := h.Tokens.Status(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}
