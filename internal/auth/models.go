package auth

import "github.com/golang-jwt/jwt/v5"

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Claims is the payload of both token kinds. Refresh tokens also carry a
// jti that names their session.
type Claims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}
