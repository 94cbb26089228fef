package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anbuselvan/assetsync/internal/apperr"
	"github.com/anbuselvan/assetsync/internal/excel"
	"github.com/anbuselvan/assetsync/internal/models"
	"github.com/anbuselvan/assetsync/internal/repository"
	"github.com/anbuselvan/assetsync/internal/utils"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) error
	Login(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*models.User, error)

	// Asset operations
	FindAssetByTag(ctx context.Context, tag string) ([]models.AssetRecord, error)
	ReassignAsset(ctx context.Context, tag string, req models.ReassignRequest) error

	// Synchronization
	RefreshSync(ctx context.Context) (*excel.Result, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo      repository.Repository
	syncer    *excel.Synchronizer
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *utils.Logger
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	syncer *excel.Synchronizer,
	jwtSecret string,
	tokenTTL time.Duration,
) Service {
	return &DefaultService{
		repo:      repo,
		syncer:    syncer,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    utils.NewLogger("service"),
	}
}

// Authentication methods
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) error {
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, role)
	}

	created, err := s.repo.CreateUser(ctx, req.Username, req.Password, req.FullName, req.Email, role)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: username already registered", apperr.ErrConflict)
	}

	s.logger.Info("registered user %s with role %s", req.Username, role)
	return nil
}

func (s *DefaultService) Login(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	user, err := s.repo.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("error authenticating user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: incorrect username or password", apperr.ErrUnauthorized)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
	}, nil
}

// ValidateToken verifies the token's signature, expiry, and claims, then
// re-fetches the user so that a role change or a disabled account
// invalidates tokens issued before the change.
func (s *DefaultService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", apperr.ErrUnauthorized)
	}

	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("%w: missing subject claim", apperr.ErrUnauthorized)
	}
	role, ok := claims["role"].(string)
	if !ok || !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: missing or unknown role claim", apperr.ErrUnauthorized)
	}

	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: unknown user", apperr.ErrUnauthorized)
	}
	if user.Role != role {
		return nil, fmt.Errorf("%w: stale role claim", apperr.ErrUnauthorized)
	}
	if user.Disabled {
		return nil, fmt.Errorf("%w: inactive user", apperr.ErrUnauthorized)
	}

	return user, nil
}

// Asset operations
func (s *DefaultService) FindAssetByTag(ctx context.Context, tag string) ([]models.AssetRecord, error) {
	records, err := s.syncer.FindAssetByTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("error searching assets: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: asset %s", apperr.ErrNotFound, tag)
	}
	return records, nil
}

func (s *DefaultService) ReassignAsset(ctx context.Context, tag string, req models.ReassignRequest) error {
	updates := req.Updates()
	if len(updates) == 0 {
		return fmt.Errorf("%w: no fields to update", apperr.ErrValidation)
	}

	updated, err := s.syncer.ReassignAsset(ctx, tag, updates)
	if err != nil {
		return fmt.Errorf("error reassigning asset: %w", err)
	}
	if !updated {
		return fmt.Errorf("%w: asset %s", apperr.ErrNotFound, tag)
	}

	s.logger.Info("reassigned asset %s", tag)
	return nil
}

// Synchronization
func (s *DefaultService) RefreshSync(ctx context.Context) (*excel.Result, error) {
	result, err := s.syncer.ExportDatabase(ctx)
	if err != nil {
		s.logger.Error("manual sync failed: %v", err)
		return nil, err
	}
	return result, nil
}

// Helper methods
func (s *DefaultService) issueToken(user *models.User) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"exp":  now.Add(s.tokenTTL).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
