package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/util"
)

const sessionCookieName = "admin_session"

// RequireAdmin gates the admin area: requests without a valid session cookie
// are redirected to the login page with the original path preserved in the
// next parameter.
func (s *Server) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			return redirectToLogin(c)
		}
		if _, err := util.ValidateSessionToken(cookie.Value); err != nil {
			return redirectToLogin(c)
		}
		return next(c)
	}
}

func redirectToLogin(c echo.Context) error {
	target := "/admin/login?next=" + url.QueryEscape(c.Request().URL.RequestURI())
	return c.Redirect(http.StatusFound, target)
}

// startSession signs a session token and installs the session cookie
func (s *Server) startSession(c echo.Context) error {
	token, err := util.GenerateSessionToken()
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   s.cfg.Auth.SessionHours * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.Request().TLS != nil,
	})
	return nil
}

// clearSession expires the session cookie
func clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext returns a post-login redirect target restricted to local paths,
// so the next parameter cannot be abused as an open redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/admin/leads"
	}
	return next
}
