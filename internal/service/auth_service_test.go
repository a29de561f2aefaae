package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
)

const testJWTSecret = "test-secret"

type identityProviderStub struct {
	identity Identity
	err      error
}

func (p *identityProviderStub) AuthCodeURL(state string) string {
	return "https://id.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *identityProviderStub) Exchange(ctx context.Context, code string) (Identity, error) {
	if p.err != nil {
		return Identity{}, p.err
	}
	return p.identity, nil
}

type adminCheckerStub map[string]bool

func (a adminCheckerStub) IsAdmin(ctx context.Context, userID string) bool {
	return a[userID]
}

func newTestAuthService(t *testing.T, provider IdentityProvider, cache *redis.Client, events EventBus) AuthService {
	t.Helper()
	users := repository.NewUserRepository(newTestStore(t))
	return NewAuthService(provider, users, adminCheckerStub{"root": true}, cache, events, testJWTSecret, time.Hour, testLogger())
}

func signIn(t *testing.T, svc AuthService) (dto.SessionResponse, []string) {
	t.Helper()
	ctx := context.Background()
	start, err := svc.BeginSignIn(ctx)
	require.NoError(t, err)
	require.Contains(t, start.AuthURL, url.QueryEscape(start.State))

	var steps []string
	session, err := svc.CompleteSignIn(ctx, dto.SignInCallbackRequest{Code: "code", State: start.State}, func(step string) {
		steps = append(steps, step)
	})
	require.NoError(t, err)
	return session, steps
}

func TestAuthServiceSignInReportsStepsInOrder(t *testing.T) {
	provider := &identityProviderStub{identity: Identity{Subject: "donor-1", Email: "donor@example.com", Name: "Donor"}}
	svc := newTestAuthService(t, provider, nil, nil)

	session, steps := signIn(t, svc)
	expected := []string{StepRequestingUserCredential, StepFinalizingCredential, StepSigning, StepFinalizingSession}
	require.Equal(t, expected, steps)
	require.Equal(t, expected, session.Steps)
	require.Equal(t, models.UserRoleUser, session.User.Role)

	parsed, err := jwt.Parse(session.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "donor-1", claims["sub"])
	require.Equal(t, "user", claims["role"])
	require.NotEmpty(t, claims["jti"])

	user, err := svc.CurrentUser(context.Background(), "donor-1")
	require.NoError(t, err)
	require.Equal(t, "donor@example.com", user.Email)
}

func TestAuthServiceSignInGrantsAdminRole(t *testing.T) {
	provider := &identityProviderStub{identity: Identity{Subject: "root"}}
	svc := newTestAuthService(t, provider, nil, nil)

	session, _ := signIn(t, svc)
	require.Equal(t, models.UserRoleAdmin, session.User.Role)
}

func TestAuthServiceStateIsSingleUse(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	provider := &identityProviderStub{identity: Identity{Subject: "donor-1"}}
	svc := newTestAuthService(t, provider, client, nil)
	ctx := context.Background()

	start, err := svc.BeginSignIn(ctx)
	require.NoError(t, err)

	_, err = svc.CompleteSignIn(ctx, dto.SignInCallbackRequest{Code: "code", State: start.State}, nil)
	require.NoError(t, err)

	_, err = svc.CompleteSignIn(ctx, dto.SignInCallbackRequest{Code: "code", State: start.State}, nil)
	require.ErrorIs(t, err, ErrInvalidSignInState)

	_, err = svc.CompleteSignIn(ctx, dto.SignInCallbackRequest{Code: "code", State: "forged"}, nil)
	require.ErrorIs(t, err, ErrInvalidSignInState)
}

func TestAuthServiceExchangeFailure(t *testing.T) {
	provider := &identityProviderStub{err: errors.New("popup closed")}
	svc := newTestAuthService(t, provider, nil, nil)
	ctx := context.Background()

	start, err := svc.BeginSignIn(ctx)
	require.NoError(t, err)

	var steps []string
	_, err = svc.CompleteSignIn(ctx, dto.SignInCallbackRequest{Code: "code", State: start.State}, func(step string) {
		steps = append(steps, step)
	})
	require.ErrorIs(t, err, ErrSignInFailed)
	require.Equal(t, []string{StepRequestingUserCredential}, steps)
}

func TestAuthServiceWithoutProvider(t *testing.T) {
	svc := newTestAuthService(t, nil, nil, nil)

	_, err := svc.BeginSignIn(context.Background())
	require.ErrorIs(t, err, ErrIdentityUnavailable)

	_, err = svc.CurrentUser(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthServiceSignOutRevokesToken(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	for name, cache := range map[string]*redis.Client{"memory": nil, "redis": client} {
		t.Run(name, func(t *testing.T) {
			svc := newTestAuthService(t, &identityProviderStub{identity: Identity{Subject: "donor-1"}}, cache, nil)
			ctx := context.Background()
			tokenID := "jti-" + name

			require.False(t, svc.IsRevoked(ctx, tokenID))
			require.NoError(t, svc.SignOut(ctx, SessionClaims{
				Subject:   "donor-1",
				Role:      models.UserRoleUser,
				TokenID:   tokenID,
				ExpiresAt: time.Now().Add(time.Hour),
			}))
			require.True(t, svc.IsRevoked(ctx, tokenID))
			require.False(t, svc.IsRevoked(ctx, ""))
		})
	}
}

func TestAuthServicePrunesExpiredMemoryEntries(t *testing.T) {
	svc := newTestAuthService(t, &identityProviderStub{identity: Identity{Subject: "donor-1"}}, nil, nil).(*authService)
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	_, err := svc.BeginSignIn(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, SessionClaims{Subject: "donor-1", TokenID: "jti-old", ExpiresAt: clock.Add(time.Minute)}))

	clock = clock.Add(time.Hour)
	fresh, err := svc.BeginSignIn(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, SessionClaims{Subject: "donor-1", TokenID: "jti-new", ExpiresAt: clock.Add(time.Minute)}))

	svc.mu.RLock()
	require.Len(t, svc.states, 1)
	require.Contains(t, svc.states, fresh.State)
	require.Len(t, svc.revoked, 1)
	require.Contains(t, svc.revoked, "jti-new")
	svc.mu.RUnlock()

	require.True(t, svc.IsRevoked(ctx, "jti-new"))
	require.False(t, svc.IsRevoked(ctx, "jti-old"))
}

func TestAuthServiceSubscribersSeeLocalAndRemoteEvents(t *testing.T) {
	events := newEventBusStub()
	svc := newTestAuthService(t, &identityProviderStub{identity: Identity{Subject: "donor-1"}}, nil, events)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))

	updates, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	signIn(t, svc)
	event := <-updates
	require.Equal(t, AuthEventSignedIn, event.Type)
	require.Equal(t, "donor-1", event.User.Key)
	require.Len(t, events.published[SubjectAuthState], 1)

	// Our own relayed event is ignored.
	own, err := json.Marshal(events.published[SubjectAuthState][0])
	require.NoError(t, err)
	events.handlers[SubjectAuthState](own)

	remote, err := json.Marshal(authStateMessage{
		Source: "other-node",
		Event:  dto.AuthStateEvent{Type: AuthEventSignedOut, User: &models.User{Key: "donor-2"}},
	})
	require.NoError(t, err)
	events.handlers[SubjectAuthState](remote)

	event = <-updates
	require.Equal(t, AuthEventSignedOut, event.Type)
	require.Equal(t, "donor-2", event.User.Key)

	select {
	case extra := <-updates:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestAuthServiceUnsubscribeClosesChannel(t *testing.T) {
	svc := newTestAuthService(t, nil, nil, nil)

	updates, unsubscribe := svc.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-updates
	require.False(t, open)
}
