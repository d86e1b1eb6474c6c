package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jocarsa/jocarsa-lavender/internal/auth"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
)

// ErrInvalidCredentials is returned when a username/password pair or a
// token does not identify a user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the account lookup the auth service depends on.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Credentials identify the caller of a query: either a username/password
// pair or a bearer token issued by Login.
type Credentials struct {
	Username string
	Password string
	Token    string
}

func (c Credentials) complete() bool {
	if c.Token != "" {
		return true
	}
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Password) != ""
}

type AuthService struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(users UserStore, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.checkPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	token, err := auth.GenerateToken(s.jwtSecret, user.Username, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.ToResponse()}, nil
}

// Authenticate returns the username the credentials belong to.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	if creds.Token != "" {
		claims, err := auth.ValidateToken(s.jwtSecret, creds.Token)
		if err != nil {
			return "", ErrInvalidCredentials
		}
		// Tokens outlive accounts; the holder must still exist.
		user, err := s.users.FindUserByUsername(ctx, claims.Username)
		if err != nil {
			return "", err
		}
		if user == nil {
			return "", ErrInvalidCredentials
		}
		return user.Username, nil
	}
	user, err := s.checkPassword(ctx, strings.TrimSpace(creds.Username), strings.TrimSpace(creds.Password))
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func (s *AuthService) checkPassword(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SeedAdmin creates the bootstrap account unless it already exists.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	existing, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.CreateUser(ctx, &models.User{Username: username, PasswordHash: hash})
}
