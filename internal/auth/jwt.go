package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/normalize"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownKey is returned when a token names a kid the manager does not hold.
var ErrUnknownKey = errors.New("unknown signing key")

// JWTManager signs and validates JWT tokens used by the API.
// Tokens are signed with the active key; any configured key verifies, so old
// tokens stay valid while keys rotate.
type JWTManager struct {
	keys      map[string][]byte // kid -> HMAC secret
	activeKid string            // kid used to sign new tokens ("" for single-secret mode)
	duration  time.Duration     // how long tokens are valid
}

// Claims is the custom JWT payload (user id + email).
type Claims struct {
	UserID               string `json:"user_id"` // MongoDB ObjectID hex
	Email                string `json:"email"`
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt, ...
}

// NewJWTManager returns a manager using one shared secret.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return &JWTManager{
		keys:     map[string][]byte{"": []byte(secretKey)},
		duration: duration,
	}
}

// NewJWTManagerFromKeys returns a manager holding several kid-addressed keys.
// New tokens carry activeKid in their header.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	m := &JWTManager{
		keys:      make(map[string][]byte, len(keys)),
		activeKid: activeKid,
		duration:  duration,
	}
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
	}
	return m
}

// GenerateToken issues a signed JWT token for a user.
func (m *JWTManager) GenerateToken(userID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.duration)

	claims := &Claims{
		UserID: userID,
		Email:  normalize.Email(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	key, ok := m.keys[m.activeKid]
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrUnknownKey, m.activeKid)
	}

	// HS256 (HMAC with SHA-256)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.activeKid != "" {
		token.Header["kid"] = m.activeKid
	}

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// VerifyToken parses and validates a token and returns its claims.
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// only HMAC; reject alg confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		key, ok := m.keys[kid]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash for the provided plaintext.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
