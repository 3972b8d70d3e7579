package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/config"
	"github.com/Kyz7/juna/internal/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuth signs users in with their Google account.
type GoogleOAuth struct {
	svc         *Service
	config      *oauth2.Config
	userInfoURL string

	mu     sync.Mutex
	states map[string]time.Time
}

// NewGoogleOAuth returns nil when no client credentials are configured.
func NewGoogleOAuth(svc *Service, cfg config.GoogleConfig) *GoogleOAuth {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	return &GoogleOAuth{
		svc: svc,
		config: &oauth2.Config{
			RedirectURL:  cfg.RedirectURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		states:      make(map[string]time.Time),
	}
}

func (g *GoogleOAuth) Enabled() bool { return g != nil }

func (g *GoogleOAuth) Login(c *fiber.Ctx) error {
	if !g.Enabled() {
		return apperror.Unavailable("Google sign-in is not configured", nil)
	}
	state, err := g.newState()
	if err != nil {
		return apperror.Internal("Failed to start Google sign-in", err)
	}
	return c.Redirect(g.config.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

func (g *GoogleOAuth) Callback(c *fiber.Ctx) error {
	if !g.Enabled() {
		return apperror.Unavailable("Google sign-in is not configured", nil)
	}
	if !g.consumeState(c.Query("state")) {
		return apperror.Validation("INVALID_OAUTH_STATE", "Invalid state parameter")
	}

	ctx := c.UserContext()
	token, err := g.config.Exchange(ctx, c.Query("code"))
	if err != nil {
		return apperror.Unauthorized("OAUTH_EXCHANGE_FAILED", "Failed to exchange authorization code")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return apperror.Internal("Failed to build user info request", err)
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return apperror.Unavailable("Failed to get user info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperror.Unavailable("Failed to get user info", fmt.Errorf("google userinfo status %d", resp.StatusCode))
	}

	var info struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return apperror.Unavailable("Failed to decode user info", err)
	}
	if info.Email == "" || !info.VerifiedEmail {
		return apperror.Unauthorized("OAUTH_EMAIL_UNVERIFIED", "Google account email is not verified")
	}

	result, err := g.svc.LoginExternal(ctx, "google", info.Email, info.Name)
	if err != nil {
		return err
	}
	return response.Success(c, result, "Login successful")
}

func (g *GoogleOAuth) newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)

	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	for k, exp := range g.states {
		if now.After(exp) {
			delete(g.states, k)
		}
	}
	g.states[state] = now.Add(5 * time.Minute)
	return state, nil
}

func (g *GoogleOAuth) consumeState(state string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.states[state]
	if !ok || time.Now().After(expiry) {
		return false
	}
	delete(g.states, state)
	return true
}
