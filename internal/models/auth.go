package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of the signed application token.
type TokenClaims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	RoleCode string `json:"role_code"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}
