package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"onboarding/internal/apierr"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenIssuer signs HS256 access tokens carrying sub, role and name claims
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(subject, role, name string) (*TokenResponse, error) {
	expiresAt := t.now().Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"name": name,
		"exp":  expiresAt.Unix(),
		"iat":  t.now().Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenResponse{Token: signed, Role: role, ExpiresAt: expiresAt}, nil
}

type AuthService interface {
	AdminLogin(ctx context.Context, req AdminLoginRequest) (*TokenResponse, error)
}

type authService struct {
	username     string
	passwordHash []byte
	issuer       *TokenIssuer
}

// NewAuthService accepts either a plain password or a bcrypt hash ("$2..." prefix)
func NewAuthService(username, password string, issuer *TokenIssuer) (AuthService, error) {
	hash := []byte(password)
	if !strings.HasPrefix(password, "$2") {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.New("failed to hash admin password")
		}
	}
	return &authService{username: username, passwordHash: hash, issuer: issuer}, nil
}

func (s *authService) AdminLogin(ctx context.Context, req AdminLoginRequest) (*TokenResponse, error) {
	invalid := apierr.New(http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("invalid username or password"))

	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) != 1 {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, invalid
	}
	return s.issuer.Issue(req.Username, RoleAdmin, req.Username)
}
