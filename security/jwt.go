package security

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// TokenManager signs and verifies the HS256 session tokens. Secrets are
// injected at construction instead of read from the environment on every
// call.
type TokenManager struct {
    accessSecret  []byte
    refreshSecret []byte
}

func NewTokenManager(accessSecret, refreshSecret string) (*TokenManager, error) {
    if accessSecret == "" || refreshSecret == "" {
        return nil, errors.New("jwt secrets not configured")
    }
    return &TokenManager{
        accessSecret:  []byte(accessSecret),
        refreshSecret: []byte(refreshSecret),
    }, nil
}

func (tm *TokenManager) SignAccessToken(userID string) (string, error) {
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub":  userID,
        "exp":  time.Now().Add(15 * time.Minute).Unix(),
        "iat":  time.Now().Unix(),
        "type": "access",
    })
    return token.SignedString(tm.accessSecret)
}

func (tm *TokenManager) SignRefreshToken(userID string) (string, error) {
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub":  userID,
        "exp":  time.Now().Add(7 * 24 * time.Hour).Unix(),
        "iat":  time.Now().Unix(),
        "type": "refresh",
    })
    return token.SignedString(tm.refreshSecret)
}

// VerifyAccessToken validates an access token and returns the subject user
// id.
func (tm *TokenManager) VerifyAccessToken(tokenStr string) (string, error) {
    return tm.verify(tokenStr, tm.accessSecret, "access")
}

// VerifyRefreshToken validates a refresh token and returns the subject user
// id.
func (tm *TokenManager) VerifyRefreshToken(tokenStr string) (string, error) {
    return tm.verify(tokenStr, tm.refreshSecret, "refresh")
}

func (tm *TokenManager) verify(tokenStr string, secret []byte, wantType string) (string, error) {
    token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
        if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errors.New("unexpected signing method")
        }
        return secret, nil
    })
    if err != nil {
        return "", err
    }
    if !token.Valid {
        return "", errors.New("invalid token")
    }

    claims, ok := token.Claims.(jwt.MapClaims)
    if !ok {
        return "", errors.New("invalid token claims")
    }

    tokenType, ok := claims["type"].(string)
    if !ok || tokenType != wantType {
        return "", errors.New("invalid token type")
    }

    sub, ok := claims["sub"].(string)
    if !ok || sub == "" {
        return "", errors.New("token missing subject")
    }
    return sub, nil
}
