package jwttoken

import (
	"strings"

	authmw "barangay/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims maps validated token claims onto the auth middleware's
// view. Role and email are normalized so "Admin" and "admin" grant the same
// access; an empty role is left for the middleware to default to resident.
func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID: claims.UserID,
		Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
		Role:   strings.ToLower(strings.TrimSpace(claims.Role)),
	}
}

// JWTServiceAdapter lets the barangay auth middleware validate citizen and
// admin access tokens through JWTService.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
