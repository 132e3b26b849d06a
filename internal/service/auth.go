package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/metrics"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// AuthService verifies credentials and resolves request principals.
type AuthService struct {
	users         UserStore
	cache         PrincipalCache
	tokens        *auth.TokenIssuer
	credentialKey []byte
	metrics       metrics.Recorder
	logger        *slog.Logger
}

// NewAuthService creates a new AuthService. credentialKey keys the Basic
// credential cache digests. A nil cache disables caching.
func NewAuthService(users UserStore, cache PrincipalCache, tokens *auth.TokenIssuer, credentialKey []byte, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if cache == nil {
		cache = noopPrincipalCache{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:         users,
		cache:         cache,
		tokens:        tokens,
		credentialKey: credentialKey,
		metrics:       recorder,
		logger:        logger,
	}
}

// Login checks username and password and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.verifyPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ResolveBearer validates a bearer token and returns its principal.
func (s *AuthService) ResolveBearer(ctx context.Context, token string) (*model.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.principalFor(ctx, claims.Subject, model.AuthMethodBearer)
}

// ResolveBasic verifies Basic credentials and returns the principal.
// A pair verified recently is served from cache without rehashing.
func (s *AuthService) ResolveBasic(ctx context.Context, username, password string) (*model.Principal, error) {
	digest := auth.CredentialCacheKey(s.credentialKey, model.NormalizeUsername(username), password)

	userID, err := s.cache.GetCredentialUser(ctx, digest)
	if err != nil {
		s.logger.WarnContext(ctx, "credential cache read failed", slog.String("error", err.Error()))
	}
	if userID != "" {
		return s.principalFor(ctx, userID, model.AuthMethodBasic)
	}

	user, err := s.verifyPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetCredentialUser(ctx, digest, user.ID); err != nil {
		s.logger.WarnContext(ctx, "credential cache write failed", slog.String("error", err.Error()))
	}

	p := model.NewPrincipal(user, model.AuthMethodBasic)
	s.storePrincipal(ctx, p)
	return p, nil
}

// InvalidatePrincipal drops cached state for userID so the next request
// reloads roles from storage.
func (s *AuthService) InvalidatePrincipal(ctx context.Context, userID string) {
	if err := s.cache.DeletePrincipal(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "principal cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AuthService) verifyPassword(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "stored password hash unusable",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) principalFor(ctx context.Context, userID, method string) (*model.Principal, error) {
	if userID == "" {
		return nil, ErrInvalidCredentials
	}

	cached, err := s.cache.GetPrincipal(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "principal cache read failed", slog.String("error", err.Error()))
	}
	if cached != nil {
		s.metrics.IncPrincipalCacheHit()
		cached.AuthMethod = method
		return cached, nil
	}
	s.metrics.IncPrincipalCacheMiss()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	p := model.NewPrincipal(user, method)
	s.storePrincipal(ctx, p)
	return p, nil
}

func (s *AuthService) storePrincipal(ctx context.Context, p *model.Principal) {
	if err := s.cache.SetPrincipal(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "principal cache write failed", slog.String("error", err.Error()))
	}
}
