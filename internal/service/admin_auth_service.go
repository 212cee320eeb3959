package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/utils"
)

// AdminTokenTTL is the lifetime of an admin JWT.
const AdminTokenTTL = 24 * time.Hour

// AdminUserStore is implemented by repository.AdminUserRepository.
type AdminUserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) error
	UpdateLastLogin(ctx context.Context, id int) error
}

type AdminAuthService struct {
	adminRepo AdminUserStore
	jwtSecret []byte
}

func NewAdminAuthService(adminRepo AdminUserStore, jwtSecret string) *AdminAuthService {
	return &AdminAuthService{adminRepo: adminRepo, jwtSecret: []byte(jwtSecret)}
}

func (s *AdminAuthService) Login(ctx context.Context, email, password string) (string, error) {
	log.Debug().Str("email", email).Msg("Login attempt")

	user, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Failed to get user by email")
		return "", utils.ErrInvalidLogin
	}

	if !user.IsActive {
		log.Warn().Str("email", email).Msg("Account is inactive")
		return "", utils.ErrInactiveAdmin
	}

	// Verify password using bcrypt
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Password verification failed")
		return "", utils.ErrInvalidLogin
	}

	token, err := utils.GenerateJWT(s.jwtSecret, user.ID, user.Email, AdminTokenTTL)
	if err != nil {
		return "", err
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Int("user_id", user.ID).Msg("Failed to record last login")
	}

	log.Info().Str("email", email).Msg("Login successful")
	return token, nil
}

func (s *AdminAuthService) CreateAdmin(ctx context.Context, email, password, name string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		IsActive:     true,
	}

	return s.adminRepo.Create(ctx, user)
}

// EnsureAdmin creates the admin user unless one with that email exists.
// It reports whether a user was created.
func (s *AdminAuthService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	_, err := s.adminRepo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if err := s.CreateAdmin(ctx, email, password, name); err != nil {
		return false, err
	}
	log.Info().Str("email", email).Msg("Bootstrap admin created")
	return true, nil
}
