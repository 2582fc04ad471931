package ds

import (
	"backend/internal/app/role"

	"github.com/golang-jwt/jwt"
)

type JWTClaims struct {
	jwt.StandardClaims
	UserID uint      `json:"user_id"`
	Email  string    `json:"email"`
	Role   role.Role `json:"role"`
}
