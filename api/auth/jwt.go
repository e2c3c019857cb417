package auth

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/tauraamui/xerror"
)

// TokenAudience scopes issued tokens to the daemon's admin RPC
// surface. Tokens minted for any other audience fail validation even
// when signed with the same secret.
const TokenAudience = "posed-admin-api"

const tokenIssuer = "posed"
const tokenLifetime = time.Minute * 15

type customClaims struct {
	UserUUID string `json:"useruuid"`
	jwt.StandardClaims
}

var TimeNow = func() time.Time {
	return time.Now()
}

func GenToken(secret, userUUID string) (string, error) {
	now := TimeNow().UTC()
	claims := customClaims{
		UserUUID: userUUID,
		StandardClaims: jwt.StandardClaims{
			Issuer:    tokenIssuer,
			Audience:  TokenAudience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenLifetime).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&customClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
	)

	if err != nil {
		return "", xerror.Errorf("unable to validate token: %w", err)
	}

	return checkClaims(token.Claims)
}

func checkClaims(claims jwt.Claims) (string, error) {
	cc, ok := claims.(*customClaims)
	if !ok {
		return "", errors.New("unable to parse claims")
	}

	if !cc.VerifyAudience(TokenAudience, true) {
		return "", errors.New("auth token issued for a different audience")
	}

	if cc.ExpiresAt < TimeNow().UTC().Unix() {
		return "", errors.New("auth token has expired")
	}

	return cc.UserUUID, nil
}
