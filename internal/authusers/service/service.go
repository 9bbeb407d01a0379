package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kivabase/kivabase-backend/internal/apperr"
	"github.com/kivabase/kivabase-backend/internal/authusers/domain"
	"github.com/kivabase/kivabase-backend/internal/authusers/repository"
)

// SessionClaims is the JWT payload issued to a project end-user on
// signup and login.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ProjectID string `json:"project_id"`
	jwt.RegisteredClaims
}

type Service struct {
	repo       *repository.Repo
	signingKey []byte
	tokenTTL   time.Duration
}

func New(repo *repository.Repo, signingKey string, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, signingKey: []byte(signingKey), tokenTTL: tokenTTL}
}

// Create registers an end-user on behalf of an administrator. The
// password is bcrypt-hashed before it ever reaches the store.
func (s *Service) Create(ctx context.Context, projectID, email, password string) (*domain.AuthUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrCredentialsMissing
	}

	if _, err := s.repo.GetByEmail(ctx, projectID, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	u := &domain.AuthUser{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create user", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, projectID string) ([]domain.AuthUser, error) {
	out, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list users", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	u, err := s.repo.Get(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, u); err != nil {
		return apperr.Wrap(apperr.Internal, "delete user", err)
	}
	return nil
}

// Signup registers the user and opens a session in one step.
func (s *Service) Signup(ctx context.Context, projectID, email, password string) (*domain.AuthUser, string, error) {
	u, err := s.Create(ctx, projectID, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks the credentials and returns a session token. A wrong
// email and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, projectID, email, password string) (*domain.AuthUser, string, error) {
	if email == "" || password == "" {
		return nil, "", domain.ErrCredentialsMissing
	}

	u, err := s.repo.GetByEmail(ctx, projectID, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "lookup user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) issueToken(u *domain.AuthUser) (string, error) {
	claims := SessionClaims{
		UserID:    u.ID,
		Email:     u.Email,
		ProjectID: u.ProjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "sign session token", err)
	}
	return signed, nil
}

// PurgeProject implements the tenant cascade for auth users.
func (s *Service) PurgeProject(ctx context.Context, projectID string) error {
	return s.repo.PurgeProject(ctx, projectID)
}
