package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/model"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/util"
)

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Login verifies credentials and issues a fresh bearer token, replacing
// any previous one. Only the token's hash is stored.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" {
		return nil, apperrors.MissingRequired("email")
	}
	if password == "" {
		return nil, apperrors.MissingRequired("password")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to generate token", err)
	}
	hash := util.HashToken(token)
	if err := s.userRepo.SetTokenHash(ctx, user.ID, &hash); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("userId", user.ID).Msg("user logged in")
	return &LoginResult{Token: token, User: user}, nil
}

// Logout revokes the user's current token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.SetTokenHash(ctx, userID, nil); err != nil {
		return apperrors.Database(err)
	}
	log.Info().Str("userId", userID).Msg("user logged out")
	return nil
}
