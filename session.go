package main

import (
	"context"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "userID"

// userIDFromContext returns the authenticated user ID placed by the session
// gate, or "" when the request never passed it.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authenticate resolves the request's identity from the credential cookies.
// Order matters: a valid access token wins; otherwise a valid refresh token
// proves identity and a renewed access token is attached to the response.
// Returns "" when the request is unauthenticated.
func (a *App) authenticate(w http.ResponseWriter, r *http.Request) string {
	accessToken := cookieValue(r, accessCookieName)
	refreshToken := cookieValue(r, refreshCookieName)

	if accessToken != "" {
		if userID, err := a.tokens.VerifyAccess(accessToken); err == nil {
			return userID
		}
	}

	if refreshToken != "" {
		userID, err := a.tokens.VerifyRefresh(refreshToken)
		if err != nil {
			return ""
		}
		renewed, err := a.tokens.MintAccess(userID)
		if err != nil {
			return ""
		}
		http.SetCookie(w, a.authCookie(accessCookieName, renewed, a.tokens.AccessTTL()))
		return userID
	}

	return ""
}

// RequireAuth is the session gate. Requests without a usable credential are
// rejected before the handler runs; everything else proceeds with the user
// ID in the request context, possibly with a renewed access cookie attached.
func (a *App) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := a.authenticate(w, r)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", msgUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
