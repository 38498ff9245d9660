package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/config"
)

// SetSessionCookie writes the session token as an http-only cookie.
func SetSessionCookie(ctx *gin.Context, token string) {
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.CookieName, token, int(TokenTTL.Seconds()), "/", cfg.CookieDomain, cfg.CookieSecure, true)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(ctx *gin.Context) {
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.CookieName, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
}

// SessionToken returns the token carried by the request cookie, if any.
func SessionToken(ctx *gin.Context) string {
	token, err := ctx.Cookie(config.Get().CookieName)
	if err != nil {
		return ""
	}
	return token
}
