package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/repository"
)

// Sign-in progress steps, reported in order.
const (
	StepRequestingUserCredential = "requesting_user_credential"
	StepFinalizingCredential     = "finalizing_credential"
	StepSigning                  = "signing"
	StepFinalizingSession        = "finalizing_session"
)

// Auth-state event types.
const (
	AuthEventSignedIn  = "signed_in"
	AuthEventSignedOut = "signed_out"
)

const signInStateTTL = 10 * time.Minute

var (
	// ErrIdentityUnavailable indicates no identity provider is configured.
	ErrIdentityUnavailable = errors.New("identity provider not configured")
	// ErrInvalidSignInState indicates the callback state is unknown or expired.
	ErrInvalidSignInState = errors.New("sign-in state is invalid or expired")
	// ErrSignInFailed indicates the identity provider rejected the sign-in.
	ErrSignInFailed = errors.New("sign-in failed")
	// ErrUserNotFound indicates no principal is stored for the key.
	ErrUserNotFound = errors.New("user not found")
)

// Identity is the verified principal returned by an identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityProvider performs federated sign-in.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// AdminChecker reports whether a user is an active administrator.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) bool
}

// SessionClaims are the verified contents of a session token.
type SessionClaims struct {
	Subject   string
	Role      models.UserRole
	TokenID   string
	ExpiresAt time.Time
}

// AuthService signs users in and out and publishes auth-state changes.
type AuthService interface {
	BeginSignIn(ctx context.Context) (dto.SignInStartResponse, error)
	CompleteSignIn(ctx context.Context, req dto.SignInCallbackRequest, progress func(step string)) (dto.SessionResponse, error)
	SignOut(ctx context.Context, claims SessionClaims) error
	IsRevoked(ctx context.Context, tokenID string) bool
	CurrentUser(ctx context.Context, key string) (models.User, error)
	Subscribe() (<-chan dto.AuthStateEvent, func())
	Start(ctx context.Context) error
}

type authStateMessage struct {
	Source string             `json:"source"`
	Event  dto.AuthStateEvent `json:"event"`
}

type authService struct {
	provider IdentityProvider
	users    repository.UserRepository
	admins   AdminChecker
	cache    *redis.Client
	events   EventBus
	secret   []byte
	ttl      time.Duration
	nodeID   string
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu          sync.RWMutex
	states      map[string]time.Time
	revoked     map[string]time.Time
	subscribers map[chan dto.AuthStateEvent]struct{}
}

// NewAuthService constructs the auth service. provider, cache and events may be nil.
func NewAuthService(provider IdentityProvider, users repository.UserRepository, admins AdminChecker, cache *redis.Client, events EventBus, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if events == nil {
		events = NopEventBus{}
	}
	return &authService{
		provider:    provider,
		users:       users,
		admins:      admins,
		cache:       cache,
		events:      events,
		secret:      []byte(secret),
		ttl:         ttl,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "auth_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/waqf-api/internal/service/auth"),
		now:         func() time.Time { return time.Now().UTC() },
		states:      make(map[string]time.Time),
		revoked:     make(map[string]time.Time),
		subscribers: make(map[chan dto.AuthStateEvent]struct{}),
	}
}

func (s *authService) BeginSignIn(ctx context.Context) (dto.SignInStartResponse, error) {
	if s.provider == nil {
		return dto.SignInStartResponse{}, ErrIdentityUnavailable
	}

	state, err := randomState()
	if err != nil {
		return dto.SignInStartResponse{}, fmt.Errorf("generate sign-in state: %w", err)
	}
	expiresAt := s.now().Add(signInStateTTL)

	if s.cache != nil {
		if err := s.cache.Set(ctx, signInStateKey(state), "1", signInStateTTL).Err(); err != nil {
			return dto.SignInStartResponse{}, fmt.Errorf("store sign-in state: %w", err)
		}
	} else {
		s.mu.Lock()
		pruneExpired(s.states, s.now())
		s.states[state] = expiresAt
		s.mu.Unlock()
	}

	return dto.SignInStartResponse{
		AuthURL:   s.provider.AuthCodeURL(state),
		State:     state,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authService) CompleteSignIn(ctx context.Context, req dto.SignInCallbackRequest, progress func(step string)) (dto.SessionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.sign_in")
	defer span.End()

	if s.provider == nil {
		return dto.SessionResponse{}, ErrIdentityUnavailable
	}

	steps := make([]string, 0, 4)
	report := func(step string) {
		steps = append(steps, step)
		span.AddEvent(step)
		if progress != nil {
			progress(step)
		}
	}
	fail := func(err error, reason string) (dto.SessionResponse, error) {
		observability.SignIns().WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		s.logger.Warn().Err(err).Str("reason", reason).Msg("sign-in failed")
		return dto.SessionResponse{}, err
	}

	if !s.consumeState(ctx, strings.TrimSpace(req.State)) {
		return fail(ErrInvalidSignInState, "state")
	}

	report(StepRequestingUserCredential)
	identity, err := s.provider.Exchange(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrSignInFailed, err), "exchange")
	}
	if identity.Subject == "" {
		return fail(fmt.Errorf("%w: identity has no subject", ErrSignInFailed), "identity")
	}
	span.SetAttributes(attribute.String("auth.subject", identity.Subject))

	report(StepFinalizingCredential)
	user, err := s.users.Get(ctx, identity.Subject)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = models.User{Key: identity.Subject, CreatedAt: s.now()}
	case err != nil:
		return fail(err, "load user")
	}
	if identity.Email != "" {
		user.Email = identity.Email
	}
	if identity.Name != "" {
		user.Name = identity.Name
	}
	user.Role = models.UserRoleUser
	if s.admins != nil && s.admins.IsAdmin(ctx, user.Key) {
		user.Role = models.UserRoleAdmin
	}

	report(StepSigning)
	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return fail(err, "sign")
	}

	report(StepFinalizingSession)
	if err := s.users.Put(docstore.WithCaller(ctx, user.Key), user); err != nil {
		return fail(err, "persist user")
	}

	observability.SignIns().WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "signed in")
	s.logger.Info().Str("user", user.Key).Str("email", maskEmail(user.Email)).Str("role", string(user.Role)).Msg("user signed in")
	s.emit(ctx, dto.AuthStateEvent{Type: AuthEventSignedIn, User: &user, OccurredAt: s.now()})

	return dto.SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Steps:     steps,
	}, nil
}

func (s *authService) SignOut(ctx context.Context, claims SessionClaims) error {
	if claims.TokenID == "" {
		return errors.New("session has no token id")
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Minute
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, revokedTokenKey(claims.TokenID), "1", ttl).Err(); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	} else {
		now := s.now()
		s.mu.Lock()
		pruneExpired(s.revoked, now)
		s.revoked[claims.TokenID] = now.Add(ttl)
		s.mu.Unlock()
	}

	s.emit(ctx, dto.AuthStateEvent{
		Type:       AuthEventSignedOut,
		User:       &models.User{Key: claims.Subject, Role: claims.Role},
		OccurredAt: s.now(),
	})
	return nil
}

func (s *authService) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	if s.cache != nil {
		exists, err := s.cache.Exists(ctx, revokedTokenKey(tokenID)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("revocation lookup failed")
			return false
		}
		return exists > 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	until, ok := s.revoked[tokenID]
	return ok && s.now().Before(until)
}

func (s *authService) CurrentUser(ctx context.Context, key string) (models.User, error) {
	user, err := s.users.Get(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Subscribe delivers auth-state changes observed by this node, including those
// relayed from other nodes. The returned function cancels the subscription.
func (s *authService) Subscribe() (<-chan dto.AuthStateEvent, func()) {
	ch := make(chan dto.AuthStateEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Start relays auth-state events published by other nodes until ctx is done.
func (s *authService) Start(ctx context.Context) error {
	cancel, err := s.events.Subscribe(SubjectAuthState, s.handleRemote)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return nil
}

func (s *authService) handleRemote(payload []byte) {
	var message authStateMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		s.logger.Warn().Err(err).Msg("invalid auth-state event payload")
		return
	}
	if message.Source == s.nodeID {
		return
	}
	s.broadcast(message.Event)
}

func (s *authService) emit(ctx context.Context, event dto.AuthStateEvent) {
	s.broadcast(event)
	if err := s.events.Publish(ctx, SubjectAuthState, authStateMessage{Source: s.nodeID, Event: event}); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish auth-state event")
	}
}

func (s *authService) broadcast(event dto.AuthStateEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.logger.Warn().Str("type", event.Type).Msg("dropping auth-state event for slow subscriber")
		}
	}
}

func (s *authService) consumeState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if s.cache != nil {
		_, err := s.cache.GetDel(ctx, signInStateKey(state)).Result()
		if err != nil && err != redis.Nil {
			s.logger.Warn().Err(err).Msg("sign-in state lookup failed")
		}
		return err == nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.states[state]
	delete(s.states, state)
	return ok && s.now().Before(expiresAt)
}

func (s *authService) issueToken(user models.User) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":   user.Key,
		"role":  string(user.Role),
		"email": user.Email,
		"jti":   uuid.NewString(),
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func signInStateKey(state string) string {
	return "auth:state:" + state
}

// pruneExpired drops entries whose deadline has passed. Callers hold s.mu.
func pruneExpired(entries map[string]time.Time, now time.Time) {
	for key, until := range entries {
		if !now.Before(until) {
			delete(entries, key)
		}
	}
}

func revokedTokenKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}
