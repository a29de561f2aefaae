package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/noah-isme/waqf-api/internal/service"
)

// ErrMissingIDToken is returned when the token response carries no id_token.
var ErrMissingIDToken = errors.New("missing id_token in token response")

// Config holds the relying-party settings for an OpenID Connect issuer.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider signs users in against an OpenID Connect issuer.
type Provider struct {
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	logger   zerolog.Logger
}

// New discovers the issuer and builds a provider.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Provider, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("oidc issuer and client id must be provided")
	}

	discovered, err := oidc.NewProvider(ctx, strings.TrimSuffix(cfg.IssuerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     discovered.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: discovered.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		logger:   logger.With().Str("component", "oidc").Logger(),
	}, nil
}

// AuthCodeURL returns the issuer URL the browser is sent to.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Exchange trades an authorization code for a verified identity.
func (p *Provider) Exchange(ctx context.Context, code string) (service.Identity, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return service.Identity{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return service.Identity{}, ErrMissingIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return service.Identity{}, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims struct {
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return service.Identity{}, fmt.Errorf("failed to parse claims: %w", err)
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}

	p.logger.Debug().Str("subject", idToken.Subject).Msg("identity verified")

	return service.Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    name,
	}, nil
}
