package main

import (
	"net/http"
	"time"
)

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// authCookie builds a session cookie with the contract attributes: not
// readable by scripts, same-site only, fixed path, Secure in production.
func (a *App) authCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

// setAuthCookies attaches a freshly minted credential pair for userID.
func (a *App) setAuthCookies(w http.ResponseWriter, userID string) error {
	access, err := a.tokens.MintAccess(userID)
	if err != nil {
		return err
	}
	refresh, err := a.tokens.MintRefresh(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, a.authCookie(accessCookieName, access, a.tokens.AccessTTL()))
	http.SetCookie(w, a.authCookie(refreshCookieName, refresh, a.tokens.RefreshTTL()))
	return nil
}

// clearAuthCookies overwrites both credentials with immediately expired
// values. Tokens already issued stay cryptographically valid until their
// natural expiry; there is no server-side revocation list.
func (a *App) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		c := a.authCookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
