package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker выпускает и проверяет сервисные токены.
type Maker interface {
	GenerateToken(service string) (string, error)
	ParseToken(tokenStr string) (*ServiceClaims, error)
}

// MakerImpl подписывает токены HS256 секретом secretKey.
type MakerImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
}

func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
	}
}

// GenerateToken создает токен для сервиса service.
func (j *MakerImpl) GenerateToken(service string) (string, error) {
	const op = "jwt.GenerateToken"
	now := time.Now()
	claims := newServiceClaims(service, jwt.NewNumericDate(now), jwt.NewNumericDate(now.Add(j.tokenTTL)))
	if err := claims.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись, алгоритм, издателя и срок токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*ServiceClaims, error) {
	const op = "jwt.ParseToken"
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
