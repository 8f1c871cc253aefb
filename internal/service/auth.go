package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"liveness_survey/internal/config"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/jwt"
	"liveness_survey/pkg/logger"
)

type AuthService interface {
	Login(ctx context.Context, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type authService struct {
	adminCfg config.AdminConfig
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(adminCfg config.AdminConfig, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{adminCfg: adminCfg, jwtCfg: jwtCfg, log: log}
}

// Login проверяет пароль администратора и выдает токен управления опросами
func (s *authService) Login(ctx context.Context, password string) (*LoginResponse, error) {
	if s.adminCfg.PasswordHash == "" {
		s.log.Error("admin password hash is not configured")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.adminCfg.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAdminToken(s.jwtCfg.Secret, s.jwtCfg.Issuer, s.jwtCfg.TTL)
	if err != nil {
		s.log.Error("failed to generate admin token", "error", err)
		return nil, err
	}

	return &LoginResponse{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	return jwt.ValidateToken(tokenString, s.jwtCfg.Secret)
}
