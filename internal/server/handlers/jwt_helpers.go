package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer - значение iss в выпускаемых токенах
const Issuer = "gophsync"

// ErrInvalidToken is returned for a token that parsed but failed validation.
var ErrInvalidToken = errors.New("invalid token")

// CustomClaims представляет JWT claims сервера синхронизации
// Владелец записей хранится в стандартном claim sub
type CustomClaims struct {
	jwt.RegisteredClaims
}

// JWTConfig содержит конфигурацию для JWT
type JWTConfig struct {
	Now            func() time.Time
	Secret         []byte
	AccessTokenTTL time.Duration
}

// Enabled reports whether bearer authentication is configured.
func (c JWTConfig) Enabled() bool {
	return len(c.Secret) > 0
}

func (c JWTConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// GenerateAccessToken создает новый JWT access token для subject
// Нулевой AccessTokenTTL выпускает бессрочный токен
func GenerateAccessToken(cfg JWTConfig, subject string) (string, time.Time, error) {
	now := cfg.now()

	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}
	var expiresAt time.Time
	if cfg.AccessTokenTTL > 0 {
		expiresAt = now.Add(cfg.AccessTokenTTL)
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken валидирует JWT access token и возвращает его claims
func ValidateAccessToken(cfg JWTConfig, tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(cfg.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
