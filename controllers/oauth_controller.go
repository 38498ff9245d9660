package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

const oauthStateTTL = 10 * time.Minute

type oauthUser struct {
	ID        string
	Username  string
	Email     string
	AvatarURL string
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Fail(ctx, utils.BadRequest(40010, err.Error()))
		return
	}

	state := utils.NewState(oauthStateTTL)
	utils.Success(ctx, "success", gin.H{
		"authorizationUrl": cfg.AuthCodeURL(state),
		"state":            state,
	})
}

// OAuthCallback exchanges the authorization code for a user identity and issues the session cookie.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Fail(ctx, utils.BadRequest(40011, "Missing code or state"))
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Fail(ctx, utils.BadRequest(40010, err.Error()))
		return
	}
	if !utils.ConsumeState(state) {
		utils.Fail(ctx, utils.BadRequest(40012, "Invalid or expired state"))
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.L().Warn("oauth exchange failed", zap.String("provider", provider), zap.Error(err))
		utils.Fail(ctx, utils.BadRequest(40013, "Failed to exchange code"))
		return
	}

	info, err := fetchOAuthUser(reqCtx, provider, cfg.Client(reqCtx, token))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	user, err := a.findOrCreateOAuthUser(reqCtx, provider, info)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	if err := issueSession(ctx, user); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, "Login successful", sanitizeUserResponse(*user))
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, errors.New("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, errors.New("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// enabledProviders lists the providers with credentials configured.
func enabledProviders() []string {
	out := []string{}
	for _, p := range []string{"github", "google"} {
		if _, err := oauthConfig(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func fetchOAuthUser(ctx context.Context, provider string, client *http.Client) (*oauthUser, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(ctx, client)
	case "google":
		return fetchGoogleUser(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		Email:     email,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func fetchGoogleUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	local, _, _ := strings.Cut(payload.Email, "@")
	return &oauthUser{
		ID:        payload.ID,
		Username:  local,
		Email:     payload.Email,
		AvatarURL: payload.Picture,
	}, nil
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, info *oauthUser) (*models.User, error) {
	user, err := a.store.Users.FindByProvider(ctx, provider, info.ID)
	if err == nil {
		if info.AvatarURL != "" && user.Avatar != info.AvatarURL {
			user.Avatar = info.AvatarURL
			if err := a.store.Users.Save(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username, err := a.uniqueUsername(ctx, info.Username, provider, info.ID)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(info.Email)
	if email == "" {
		// email is unique and required; providers may hide it
		email = fmt.Sprintf("%s+%s@users.noreply.inkpress", provider, info.ID)
	}
	user = &models.User{
		Username:   username,
		Email:      email,
		Avatar:     info.AvatarURL,
		Provider:   provider,
		ProviderID: info.ID,
		Role:       models.RoleUser,
	}
	if config.Get().IsAdminUsername(username) {
		user.Role = models.RoleAdmin
	}
	if err := a.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	utils.L().Info("oauth user created", zap.String("provider", provider), zap.String("user_id", user.ID))
	return user, nil
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

// uniqueUsername derives a free username from the provider's login.
func (a *AuthController) uniqueUsername(ctx context.Context, base, provider, id string) (string, error) {
	base = sanitizeUsername(base)
	if len(base) < minUsernameLen {
		base = sanitizeUsername(provider + "_" + id)
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		taken, _, err := a.store.Users.Taken(ctx, candidate, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}
