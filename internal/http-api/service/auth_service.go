package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yamdb/internal/config"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/validation"
	"yamdb/internal/mailer"
	"yamdb/internal/middleware/auth"
	"yamdb/internal/observability/metrics"

	"gorm.io/gorm"
)

const restartSignupMessage = "confirmation code is invalid or already used; " +
	"request a new one through /api/v1/auth/signup/ and try again"

// SignupThrottle limits how often a username may request a code.
type SignupThrottle interface {
	Allow(ctx context.Context, username string) (bool, error)
	Release(ctx context.Context, username string) error
}

type AuthService interface {
	// Signup issues a fresh confirmation code to the username/email pair,
	// creating the user on first contact, and emails it.
	Signup(ctx context.Context, username, email string) (*models.User, error)
	// IssueToken redeems a confirmation code for an access token. Every
	// attempt consumes the code.
	IssueToken(ctx context.Context, username, code string) (string, error)
	// Authenticate resolves a bearer token to the current actor.
	Authenticate(ctx context.Context, token string) (policy.Actor, error)
}

type authService struct {
	userRepo repository.UserRepository
	codeRepo repository.ConfirmationCodeRepository
	mailer   mailer.Mailer
	throttle SignupThrottle
	tokens   *TokenIssuer
	codeTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	codeRepo repository.ConfirmationCodeRepository,
	m mailer.Mailer,
	throttle SignupThrottle,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo: userRepo,
		codeRepo: codeRepo,
		mailer:   m,
		throttle: throttle,
		tokens:   NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		codeTTL:  cfg.ConfirmationCodeTTL,
		logger:   logger,
		now:      time.Now,
	}
}

func validateSignup(username, email string) error {
	fields := fieldErrors{}
	fields.add("username", validation.ValidateUsername(username))
	fields.add("email", validateEmail(email))
	return fields.err()
}

func (s *authService) Signup(ctx context.Context, username, email string) (user *models.User, err error) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.SignupsTotal.WithLabelValues(result).Inc()
	}()

	if err := validateSignup(username, email); err != nil {
		result = metrics.ResultRejected
		return nil, err
	}

	allowed, err := s.throttle.Allow(ctx, username)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if !allowed {
		result = metrics.ResultThrottled
		return nil, newError(ErrTooManyRequests, "a confirmation code was requested recently, try again later")
	}
	// give the slot back if the user never gets a code
	defer func() {
		if err != nil {
			if rerr := s.throttle.Release(context.WithoutCancel(ctx), username); rerr != nil {
				s.logger.WarnContext(ctx, "release signup throttle", "username", username, "error", rerr)
			}
		}
	}()

	user, err = s.resolveSignupUser(ctx, username, email)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			result = metrics.ResultConflict
		} else {
			result = metrics.ResultError
		}
		return nil, err
	}

	code, err := auth.GenerateCode(auth.ConfirmationCodeLength)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	hash, err := auth.HashCode(code)
	if err != nil {
		result = metrics.ResultError
		return nil, fmt.Errorf("hash confirmation code: %w", err)
	}
	if err := s.codeRepo.Issue(ctx, user.ID, hash, s.now()); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	if err := s.mailer.Send(ctx, mailer.ConfirmationCodeMessage(user.Email, user.Username, code)); err != nil {
		result = metrics.ResultError
		s.logger.ErrorContext(ctx, "confirmation email failed", "user_id", user.ID, "error", err)
		return nil, wrapError(ErrEmailDelivery, "could not send the confirmation email, try again later", err)
	}

	s.logger.InfoContext(ctx, "confirmation code issued", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// resolveSignupUser returns the user owning exactly this username/email
// pair, creating it if neither value is taken.
func (s *authService) resolveSignupUser(ctx context.Context, username, email string) (*models.User, error) {
	conflict := newError(ErrConflict, "a user with this username or email already exists")

	byName, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	byEmail, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	switch {
	case byName != nil && byEmail != nil && byName.ID == byEmail.ID:
		return byName, nil
	case byName != nil || byEmail != nil:
		return nil, conflict
	}

	user := &models.User{Username: username, Email: email, Role: models.RoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// a concurrent signup may have created the same pair
		existing, ferr := s.userRepo.FindByUsername(ctx, username)
		if ferr == nil && existing.Email == email {
			return existing, nil
		}
		return nil, conflict
	}
	return user, nil
}

func (s *authService) IssueToken(ctx context.Context, username, code string) (string, error) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues(result).Inc()
	}()

	fields := fieldErrors{}
	if username == "" {
		fields.add("username", errRequired)
	}
	if code == "" {
		fields.add("confirmation_code", errRequired)
	}
	if err := fields.err(); err != nil {
		result = metrics.ResultRejected
		return "", err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		result = metrics.ResultRejected
		return "", notFound(err, "user")
	}

	var (
		token    string
		rejected bool
		now      = s.now()
	)
	err = s.codeRepo.Redeem(ctx, user.ID, now, func(c *models.ConfirmationCode) (string, error) {
		if !c.Redeemable(now, s.codeTTL) || auth.VerifyCode(c.CodeHash, code) != nil {
			rejected = true
			return models.CodeStateConsumedFailure, nil
		}
		signed, err := s.tokens.Mint(user)
		if err != nil {
			return "", err
		}
		token = signed
		return models.CodeStateConsumedSuccess, nil
	})
	if err != nil {
		result = metrics.ResultError
		return "", fmt.Errorf("redeem confirmation code: %w", err)
	}
	if rejected {
		result = metrics.ResultRejected
		s.logger.InfoContext(ctx, "confirmation code rejected", "user_id", user.ID)
		return "", newError(ErrUnauthorized, restartSignupMessage)
	}

	s.logger.InfoContext(ctx, "access token issued", "user_id", user.ID)
	return token, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (policy.Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return policy.Anonymous(), wrapError(ErrUnauthorized, "token is invalid or expired", err)
	}

	// reload on every request so role changes and deletions apply at once
	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.Anonymous(), newError(ErrUnauthorized, "user for this token no longer exists")
		}
		return policy.Anonymous(), fmt.Errorf("load token user: %w", err)
	}
	return policy.ActorFor(user), nil
}
