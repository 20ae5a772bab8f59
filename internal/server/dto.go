package server

import "bankline/internal/domain"

// Request payloads

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// Response payloads

type OKResponse struct {
	OK bool `json:"ok"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ChatResponse struct {
	SessionID string           `json:"session_id"`
	Reply     string           `json:"reply"`
	NLU       domain.NLUResult `json:"nlu"`
	Needed    []string         `json:"needed,omitempty"`
}
