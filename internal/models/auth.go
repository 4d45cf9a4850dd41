package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	FullName   string   `json:"full_name"`
	SchoolCode string   `json:"school_code"`
	UserType   UserType `json:"user_type"`
}

// JWTClaims represents the JWT payload for access tokens. SchoolCode is the
// authorization boundary: downstream services never receive a school scope
// from anywhere else.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	SchoolCode string   `json:"school_code"`
	UserType   UserType `json:"user_type"`
	Username   string   `json:"username"`
	jwt.RegisteredClaims
}
