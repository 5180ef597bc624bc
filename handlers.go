package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp creates an account and starts a session.
// POST /api/sign-up
func (a *App) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msgInvalidRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msgFieldsRequired)
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", msgInvalidEmail)
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "PASSWORD_TOO_SHORT", msgPasswordTooShort)
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("sign-up hash: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
		return
	}

	user, err := a.store.CreateUser(r.Context(), req.Email, req.Username, hashed)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "USER_EXISTS", msgUserExists)
			return
		}
		log.Printf("sign-up create user: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
		return
	}

	if err := a.setAuthCookies(w, user.ID); err != nil {
		log.Printf("sign-up mint tokens: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully.",
		"user":    user.Public(),
	})
}

// HandleLogin authenticates by email and password. Unknown email and wrong
// password return the identical response; either failure counts against the
// per-IP throttle.
// POST /api/log-in
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if a.loginLimiter.Blocked(ip) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", msgTooManyAttempts)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msgInvalidRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Printf("log-in lookup: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
			return
		}
		a.loginLimiter.Fail(ip)
		writeError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", msgInvalidCredentials)
		return
	}

	if !comparePassword(user.PasswordHash, req.Password) {
		a.loginLimiter.Fail(ip)
		writeError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", msgInvalidCredentials)
		return
	}

	a.loginLimiter.Reset(ip)

	if err := a.setAuthCookies(w, user.ID); err != nil {
		log.Printf("log-in mint tokens: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged in successfully.",
		"user":    user.Public(),
	})
}

// HandleLogout expires both credential cookies.
// POST /api/log-out
func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully.",
	})
}

// HandleFetchUser runs the session gate logic inline, then returns the
// bound user record.
// GET /api/fetch-user
func (a *App) HandleFetchUser(w http.ResponseWriter, r *http.Request) {
	userID := a.authenticate(w, r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", msgUnauthorized)
		return
	}

	user, err := a.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", msgUserNotFound)
			return
		}
		log.Printf("fetch-user lookup: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": user.Public(),
	})
}

// HandleAddAdmin promotes a user to admin by email. Only a caller holding a
// valid access token bound to an admin account may do so; the refresh
// fallback does not apply here.
// POST /api/add-admin
func (a *App) HandleAddAdmin(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, accessCookieName)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", msgUnauthorized)
		return
	}
	callerID, err := a.tokens.VerifyAccess(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", msgUnauthorized)
		return
	}

	caller, err := a.store.GetUserByID(r.Context(), callerID)
	if err != nil || caller.Role != RoleAdmin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", msgAdminRequired)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msgInvalidRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", msgEmailRequired)
		return
	}

	updated, err := a.store.UpdateUserRole(r.Context(), req.Email, RoleAdmin)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", msgTargetNotFound)
			return
		}
		log.Printf("add-admin update: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User promoted to admin",
		"admin": map[string]string{
			"email": updated.Email,
			"role":  updated.Role,
		},
	})
}
