package main

import (
	"encoding/json"
	"net/http"
)

// APIError is the only error shape the API emits. Messages come from a
// fixed vocabulary; internal error detail is logged, never returned.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// External error messages. Login failures share one message so the
// response cannot reveal whether the email or the password was wrong.
const (
	msgInvalidRequest     = "Invalid request body"
	msgFieldsRequired     = "All fields are required."
	msgInvalidEmail       = "Please enter a valid email address"
	msgPasswordTooShort   = "Password must be at least 6 characters"
	msgUserExists         = "User already exists."
	msgInvalidCredentials = "Invalid credentials."
	msgTooManyAttempts    = "Too many attempts. Try again later."
	msgUnauthorized       = "Unauthorised."
	msgAdminRequired      = "Admin access required"
	msgEmailRequired      = "Email is required"
	msgUserNotFound       = "User not found."
	msgTargetNotFound     = "User with this email does not exist"
	msgUpstreamFailed     = "Analytics service unavailable"
	msgInternalError      = "Internal server error"
)

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Code:    code,
		Message: message,
	})
}
