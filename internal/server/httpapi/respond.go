package httpapi

import (
	"encoding/json"
	"net/http"
)

// Response messages. Plain-text bodies carry exactly these strings.
const (
	MsgRegistered       = "User registered successfully"
	MsgAdminWelcome     = "Welcome to the admin panel"
	MsgInvalidBody      = "Invalid request body"
	MsgEmailTaken       = "Email already registered"
	MsgInvalidCreds     = "Invalid email or password"
	MsgAccessDenied     = "Access denied"
	MsgInvalidToken     = "Invalid token"
	MsgNotFound         = "Not found"
	MsgTooManyRequests  = "Too many requests"
	MsgInternal         = "Internal server error"
	MsgValidationFailed = "validation failed"
)

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
