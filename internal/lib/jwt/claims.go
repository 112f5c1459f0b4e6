// Package jwt реализует генерацию и парсинг сервисных JWT токенов.
//
// Токен выдаётся клиенту внутреннего API (боту) и подписывается общим секретом.
package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer издатель всех токенов движка. Токены с другим iss отклоняются.
const Issuer = "progress-engine"

// ServiceClaims данные, хранящиеся в сервисном токене.
type ServiceClaims struct {
	Service string `json:"service"` // имя клиента API
	jwt.RegisteredClaims
}

func newServiceClaims(service string, issuedAt, expiresAt *jwt.NumericDate) ServiceClaims {
	return ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   service,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}
}

// Validate вызывается парсером после проверки стандартных полей.
func (c ServiceClaims) Validate() error {
	if c.Service == "" {
		return errors.New("empty service claim")
	}
	return nil
}
