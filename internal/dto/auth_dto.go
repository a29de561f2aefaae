package dto

import (
	"time"

	"github.com/noah-isme/waqf-api/internal/models"
)

// SignInStartResponse carries the identity provider redirect.
type SignInStartResponse struct {
	AuthURL   string    `json:"auth_url"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignInCallbackRequest completes a federated sign-in.
type SignInCallbackRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

// SessionResponse is returned after a successful sign-in.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
	Steps     []string    `json:"steps"`
}

// AuthStateEvent is delivered to auth-state subscribers.
type AuthStateEvent struct {
	Type       string       `json:"type"`
	User       *models.User `json:"user,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
