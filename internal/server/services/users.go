// Package services contains server-side business logic. UserService handles
// registration, login, token verification and profile lookup.
package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/homesite/internal/common"
	"github.com/dmitrijs2005/homesite/internal/logging"
	"github.com/dmitrijs2005/homesite/internal/server/auth"
	"github.com/dmitrijs2005/homesite/internal/server/config"
	"github.com/dmitrijs2005/homesite/internal/server/models"
	"github.com/dmitrijs2005/homesite/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/homesite/internal/server/validation"
)

// Operation names reported to an AuthObserver.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpVerify   = "verify"
)

// Outcomes reported to an AuthObserver.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeConflict     = "conflict"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// AuthObserver receives the outcome of every auth operation.
type AuthObserver interface {
	ObserveAuth(op, outcome string)
}

// Token is a signed session token and its expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// UserService provides authentication-related operations:
//   - Register: validate, hash and store a new credential record
//   - Login: verify credentials and mint a session token
//   - VerifyToken: resolve a bearer token to a user id
//   - Profile: load the record of an authenticated user
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	bcryptCost                  int
	logger                      logging.Logger
	observer                    AuthObserver

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService constructs a UserService using repositories and server config.
// db may be nil when m does not need a database.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		bcryptCost:                  cfg.BcryptCost,
		logger:                      logger.With("module", "services.users"),
	}
}

// SetObserver installs o as the outcome observer. Nil disables reporting.
func (s *UserService) SetObserver(o AuthObserver) {
	s.observer = o
}

func (s *UserService) observe(op, outcome string) {
	if s.observer != nil {
		s.observer.ObserveAuth(op, outcome)
	}
}

// Register creates a credential record. Input is validated before the store
// is touched; a taken email is reported by the store as ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {

	if err := validation.Credentials(email, password); err != nil {
		s.observe(OpRegister, OutcomeInvalid)
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Error(ctx, "hash password failed", "error", err)
		s.observe(OpRegister, OutcomeError)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
	}

	repo := s.repomanager.Users(s.db)

	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.observe(OpRegister, OutcomeConflict)
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "create user failed", "error", err)
		s.observe(OpRegister, OutcomeError)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.observe(OpRegister, OutcomeSuccess)
	return user, nil
}

// Login checks credentials and returns a signed token. Unknown email and
// wrong password produce the same ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*Token, error) {

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep response timing close to the wrong-password path
			_ = auth.CheckPassword(s.getDummyHash(), password)
			s.observe(OpLogin, OutcomeUnauthorized)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "lookup user failed", "error", err)
		s.observe(OpLogin, OutcomeError)
		return nil, common.ErrorInternal
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.observe(OpLogin, OutcomeUnauthorized)
		return nil, common.ErrorUnauthorized
	}

	token, expiresAt, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "sign token failed", "error", err)
		s.observe(OpLogin, OutcomeError)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	s.observe(OpLogin, OutcomeSuccess)
	return &Token{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// VerifyToken returns the user id a valid token was issued for. Any
// failure matches common.ErrInvalidToken.
func (s *UserService) VerifyToken(token string) (string, error) {
	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		s.observe(OpVerify, OutcomeInvalid)
		return "", err
	}
	s.observe(OpVerify, OutcomeSuccess)
	return userID, nil
}

// Profile returns the stored record of userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "load profile failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

func (s *UserService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		secret, err := common.MakeRandHexString(16)
		if err != nil {
			secret = "homesite-dummy-password"
		}
		hash, err := auth.HashPassword(secret, s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
