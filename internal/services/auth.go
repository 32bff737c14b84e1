package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"safeshe-backend-go/internal/live"
	"safeshe-backend-go/internal/models"
	"safeshe-backend-go/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// Providers is the fixed set of accepted mock OAuth providers.
var Providers = []string{"google", "microsoft", "apple", "mock"}

const (
	defaultUserName   = "SafeShe User"
	defaultProviderID = "mock-token"
)

type TokenService struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
}

func (t TokenService) CreateAccessToken(userID, provider string) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(t.AccessTTL)
	claims := jwt.MapClaims{
		"iss":      t.Issuer,
		"sub":      userID,
		"typ":      "access",
		"provider": provider,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

type tokenKey struct{}

// WithAccessToken attaches a raw bearer token to ctx for ViewPolicy.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// ViewPolicy admits live viewers that present a valid access token.
// Any authenticated user may watch any channel.
// TODO: restrict to the tracked user and their guardians once guardians
// carry an account id.
func (t TokenService) ViewPolicy() live.Policy {
	return live.PolicyFunc(func(ctx context.Context, userID string) error {
		raw, _ := ctx.Value(tokenKey{}).(string)
		if raw == "" {
			return ErrUnauthorized("Authentication failed")
		}
		token, claims, err := t.ParseToken(raw)
		if err != nil || !token.Valid || claims["typ"] != "access" {
			return ErrUnauthorized("Authentication failed")
		}
		return nil
	})
}

type MockLoginRequest struct {
	Provider string  `json:"provider"`
	Token    *string `json:"token"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	PhotoURL *string `json:"photo_url"`
}

type Session struct {
	UserID      string `json:"user_id"`
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type AuthService struct {
	store  store.Store
	tokens TokenService
}

func NewAuthService(s store.Store, tokens TokenService) *AuthService {
	return &AuthService{store: s, tokens: tokens}
}

// MockLogin creates a user record for an allowed provider and issues an
// access token for it. No credential is verified.
func (a *AuthService) MockLogin(ctx context.Context, req MockLoginRequest) (Session, error) {
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if !isProvider(provider) {
		return Session{}, ErrUnsupported("Unsupported provider")
	}

	user := models.User{
		Name:       orDefault(req.Name, defaultUserName),
		Email:      orDefault(req.Email, fmt.Sprintf("user-%s@safeshe.app", provider)),
		Provider:   models.String(provider),
		ProviderID: orDefault(req.Token, defaultProviderID),
		PhotoURL:   nonEmpty(req.PhotoURL),
		IsActive:   true,
	}
	if err := validateInput(user); err != nil {
		return Session{}, err
	}
	doc, err := store.ToDocument(user)
	if err != nil {
		return Session{}, WrapError(err, "encode user")
	}
	userID, err := a.store.Insert(ctx, models.CollectionUser, doc)
	if err != nil {
		return Session{}, WrapError(err, "store user")
	}
	access, exp, err := a.tokens.CreateAccessToken(userID, provider)
	if err != nil {
		return Session{}, WrapError(err, "sign token")
	}
	return Session{UserID: userID, Provider: provider, AccessToken: access, ExpiresAt: exp}, nil
}

func isProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

func orDefault(value *string, fallback string) *string {
	if v := nonEmpty(value); v != nil {
		return v
	}
	return models.String(fallback)
}

func nonEmpty(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
