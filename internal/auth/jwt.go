package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TipoAdmin   = "admin"
	TipoDefault = "default"
)

// ValidTipo reporta se o tipo de usuário é um dos papéis conhecidos.
func ValidTipo(tipo string) bool {
	return tipo == TipoAdmin || tipo == TipoDefault
}

type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id"`
	Tipo   string `json:"tipo"`
}

func BuildJWT(secret []byte, userID int64, tipo string, exp time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
		UserID: userID,
		Tipo:   tipo,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func ParseJWT(secret []byte, tokenString string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
