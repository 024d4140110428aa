package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/models"
)

// Authenticator turns a bearer token into a user ID
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint, error)
}

// JWTAuthenticator verifies HS256 access tokens carrying a user_id claim
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTAuthenticator(secret string, ttl time.Duration) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &JWTAuthenticator{secret: []byte(secret), ttl: ttl}, nil
}

type accessClaims struct {
	UserID    interface{} `json:"user_id"`
	TokenType string      `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an access token for userID
func (a *JWTAuthenticator) IssueToken(userID uint) (string, error) {
	now := time.Now()
	claims := accessClaims{
		UserID:    userID,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, tokenString string) (uint, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, apperrors.ErrUnauthorized.Wrap(err)
	}

	userID, err := claimUserID(claims.UserID)
	if err != nil {
		return 0, apperrors.ErrUnauthorized.Wrap(err)
	}
	return userID, nil
}

// user_id arrives as a JSON number or a numeric string depending on the issuer
func claimUserID(v interface{}) (uint, error) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != float64(uint(id)) {
			return 0, fmt.Errorf("invalid user_id %v", id)
		}
		return uint(id), nil
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("invalid user_id %q", id)
		}
		return uint(n), nil
	default:
		return 0, errors.New("missing user_id claim")
	}
}

// UserByEmail resolves Firebase identities to local users
type UserByEmail interface {
	FindPayerByEmail(ctx context.Context, email string) (*models.User, error)
}

// FirebaseAuthenticator verifies Firebase ID tokens and maps the email to a local user
type FirebaseAuthenticator struct {
	client *auth.Client
	users  UserByEmail
}

func NewFirebaseAuthenticator(client *auth.Client, users UserByEmail) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{client: client, users: users}
}

func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, idToken string) (uint, error) {
	if a.client == nil {
		return 0, apperrors.ErrUnauthorized.WithMessage("Authentication is not configured")
	}

	decoded, err := a.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return 0, apperrors.ErrUnauthorized.Wrap(err)
	}

	email, _ := decoded.Claims["email"].(string)
	if email == "" {
		return 0, apperrors.ErrUnauthorized.Wrap(fmt.Errorf("token for %s has no email", decoded.UID))
	}

	user, err := a.users.FindPayerByEmail(ctx, email)
	if err != nil {
		return 0, apperrors.ErrUnauthorized.Wrap(err)
	}
	return user.ID, nil
}
