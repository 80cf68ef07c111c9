package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
)

const tokenIssuer = "rlinks"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	UserID   uint   `json:"id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenService creates a token service. A ttl of 0 or less issues
// tokens without an expiry.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
		),
		now: time.Now,
	}
}

// Generate creates a new JWT token for a user
func (s *TokenService) Generate(userID uint, username string) (string, error) {
	now := s.now()
	claims := &Claims{
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   tokenIssuer,
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errx.E("auth.Generate", errx.Internal, err)
	}
	return signed, nil
}

// Validate verifies tokenString and returns its claims. Every failure is
// Unauthorized; the wrapped error says why.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	const op = "auth.Validate"

	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errx.E(op, errx.Unauthorized, ErrExpiredToken)
		}
		return nil, errx.E(op, errx.Unauthorized, errors.Join(ErrInvalidToken, err))
	}
	if !token.Valid {
		return nil, errx.E(op, errx.Unauthorized, ErrInvalidToken)
	}
	// both are required; a token without them identifies nobody
	if claims.Username == "" || claims.UserID == 0 {
		return nil, errx.E(op, errx.Unauthorized, errors.New("invalid token: missing user data"))
	}
	return claims, nil
}

// Identity converts verified claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username}
}
