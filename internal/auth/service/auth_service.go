package service

import (
	"context"
	"errors"
	"time"

	"github.com/AlibekovAA/recordkeeper/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/recordkeeper/internal/common/crypto"
	"github.com/AlibekovAA/recordkeeper/internal/common/db"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	"github.com/AlibekovAA/recordkeeper/internal/common/resilience"
	userdomain "github.com/AlibekovAA/recordkeeper/internal/user/domain"
	userrepo "github.com/AlibekovAA/recordkeeper/internal/user/repository"
)

type AuthServiceDeps struct {
	Repo        userrepo.Repository
	Hasher      commoncrypto.PasswordHasher
	IDGenerator commoncrypto.IDGenerator
	Clock       clock.Clock
	Log         *logger.Logger
}

type AuthServiceConfig struct {
	JWTSecret               string
	AccessTokenTTL          time.Duration
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
	CircuitBreakerReset     time.Duration
}

type AuthService struct {
	repo        userrepo.Repository
	hasher      commoncrypto.PasswordHasher
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
	tokens      *TokenIssuer
	breaker     *resilience.CircuitBreaker
	retry       db.RetryConfig
}

func NewAuthService(deps AuthServiceDeps, cfg AuthServiceConfig) *AuthService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}

	return &AuthService{
		repo:        deps.Repo,
		hasher:      deps.Hasher,
		idGenerator: deps.IDGenerator,
		clock:       clk,
		log:         deps.Log,
		tokens:      NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, clk),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.CircuitBreakerThreshold,
			Timeout:    cfg.CircuitBreakerTimeout,
			ResetAfter: cfg.CircuitBreakerReset,
			Name:       "users",
			Logger:     deps.Log,
			IsFailure:  isStoreFailure,
			Now:        clk.Now,
		}),
		retry: db.DefaultRetryConfig,
	}
}

// isStoreFailure keeps outcomes the caller asked for (missing user, taken
// name, rejected value) from tripping the breaker.
func isStoreFailure(err error) bool {
	switch {
	case errors.Is(err, userrepo.ErrUserNotFound),
		errors.Is(err, userrepo.ErrUsernameAlreadyExists),
		db.IsCallerError(err):
		return false
	}
	return true
}

type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginInput struct {
	Username string
	Password string
}

func (s *AuthService) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	if err := validateCredentials(input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return ErrValidation.WithCause(err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_id_generation_failed",
		}).Errorf("register failed: id generation error: %v", err)
		return newInternalError("ID_GENERATION_FAILED", "failed to generate user id", err)
	}

	user := userdomain.User{
		ID:           userdomain.ID(id),
		Username:     input.Username,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	err = s.withStore(ctx, "create user", func(ctx context.Context) error {
		return s.repo.Create(ctx, user)
	})
	if err != nil {
		switch {
		case errors.Is(err, userrepo.ErrUsernameAlreadyExists):
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "register_username_exists",
			}).Warn("register failed: already exists")
			return ErrUsernameTaken
		case db.IsConstraintViolation(err), db.IsDataException(err):
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "register_constraint_violation",
			}).Warnf("register failed: %v", err)
			return ErrValidation.WithCause(err)
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_create_failed",
		}).Errorf("register failed: %v", err)
		return err
	}

	incrementUsersRegistered()
	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "register_success",
	}).Info("register success")

	return nil
}

// Login returns a signed access token. Unknown users and wrong passwords
// produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (string, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "login_attempt",
	}).Info("login attempt")

	var user userdomain.User
	err := s.withStore(ctx, "find user by username", func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByUsername(ctx, input.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "login_user_not_found",
			}).Warn("login failed: not found")
			incrementLoginAttempt("invalid_credentials")
			return "", ErrInvalidCredentials
		}
		if db.IsDataException(err) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "login_invalid_input",
			}).Warnf("login failed: %v", err)
			incrementLoginAttempt("invalid_input")
			return "", ErrValidation.WithCause(err)
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		incrementLoginAttempt("error")
		return "", err
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_invalid_password",
		}).Warn("login failed: invalid password")
		incrementLoginAttempt("invalid_credentials")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(string(user.ID))
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"user_id":  string(user.ID),
			"action":   "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		incrementLoginAttempt("error")
		return "", newInternalError("TOKEN_ISSUE_FAILED", "failed to issue token", err)
	}

	incrementLoginAttempt("success")
	s.log.WithFields(ctx, logger.Fields{
		"username": user.Username,
		"user_id":  string(user.ID),
		"action":   "login_success",
	}).Info("login success")

	return token, nil
}

func (s *AuthService) withStore(ctx context.Context, operation string, fn func(context.Context) error) error {
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, s.log, operation, s.retry, func() error {
			return fn(ctx)
		})
	})
	return handleCircuitBreakerError(err)
}
