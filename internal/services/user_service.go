package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/counterjob/backend/internal/auth"
	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	users  repository.UserRepository
	carts  repository.CartRepository
	tokens *auth.TokenService
	google *auth.GoogleVerifier
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, carts repository.CartRepository, tokens *auth.TokenService, google *auth.GoogleVerifier) *UserService {
	return &UserService{users: users, carts: carts, tokens: tokens, google: google, now: time.Now}
}

func (s *UserService) LoginWithGoogle(ctx context.Context, credential string) (*models.Session, error) {
	id, err := s.google.Parse(credential)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialExpired) {
			return nil, apperrors.Wrap(apperrors.ErrTokenExpired, err)
		}
		logger.Debug(ctx, "google credential rejected", zap.Error(err))
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCredentials, "Failed to process login")
	}
	name := id.Name
	if name == "" {
		name = auth.LocalPart(id.Email)
	}
	return s.login(ctx, id.Email, name, id.Picture, models.ProviderGoogle)
}

// LoginWithEmail signs in with a Google account address alone.
func (s *UserService) LoginWithEmail(ctx context.Context, email string) (*models.Session, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, err.Error())
	}
	if !auth.IsGoogleAccount(email) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, auth.ErrNotGoogleMail.Error())
	}
	return s.login(ctx, email, "", "", models.ProviderEmail)
}

// login keeps the stored profile of a returning user and only flips the
// session flag; first-time users get a profile built from what we know.
func (s *UserService) login(ctx context.Context, email, name, picture, provider string) (*models.Session, error) {
	now := s.now().UTC()

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.LoggedIn = true
		user.LoggedInAt = now
	case errors.Is(err, repository.ErrNotFound):
		if name == "" {
			name = auth.NameFromEmail(email)
		}
		if picture == "" {
			picture = models.AvatarURL(name)
		}
		user = &models.User{
			Email:      email,
			Name:       name,
			Picture:    picture,
			Provider:   provider,
			LoggedIn:   true,
			LoggedInAt: now,
		}
	default:
		return nil, repoError(err, apperrors.ErrNotFound)
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}
	logger.Info(ctx, "user logged in", zap.String("email", email), zap.String("provider", provider))
	return s.session(user)
}

// Logout ends the session and empties the cart.
func (s *UserService) Logout(ctx context.Context, email string) error {
	if err := s.users.SetLoggedIn(ctx, email, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return repoError(err, apperrors.ErrNotFound)
	}
	if err := s.carts.Delete(ctx, email); err != nil {
		return repoError(err, apperrors.ErrNotFound)
	}
	return nil
}

// Authenticate resolves a bearer token to a signed-in user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	email, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, repoError(err, apperrors.ErrUnauthorized)
	}
	if !user.LoggedIn {
		return nil, apperrors.ErrLoggedOut
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}
	return user.ToProfile(), nil
}

// UpdateProfile renames the user and optionally moves the profile to a new
// email. A fresh session token is returned since the token subject may change.
func (s *UserService) UpdateProfile(ctx context.Context, email string, req *models.UpdateProfileRequest) (*models.Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = user.Name
	}
	newEmail := email
	if strings.TrimSpace(req.Email) != "" {
		if newEmail, err = auth.NormalizeEmail(req.Email); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, err.Error())
		}
	}

	user.Name = name
	user.Picture = models.AvatarURL(name)
	user.Email = newEmail
	user.UpdatedAt = s.now().UTC()

	if newEmail != email {
		err = s.users.Rekey(ctx, email, user)
	} else {
		err = s.users.Upsert(ctx, user)
	}
	if err != nil {
		return nil, repoError(err, apperrors.ErrNotFound)
	}
	return s.session(user)
}

func (s *UserService) session(user *models.User) (*models.Session, error) {
	token, exp, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &models.Session{Token: token, ExpiresAt: exp, User: user.ToProfile()}, nil
}
