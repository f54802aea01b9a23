package handler

import (
	"sync"
)

var (
	authOnce      sync.Once
	authenticator Authenticator

	// JwtKey signs session tokens. Overridden from config at startup.
	JwtKey = []byte("watchtower-dev-secret")
)

// SetSigningKey replaces the JWT signing key. Must be called before the
// first token is issued.
func SetSigningKey(key string) {
	if key != "" {
		JwtKey = []byte(key)
	}
}

type Authenticator interface {
	Register(user *User) error
	Login(user *Login) (*LoginResponse, error)
	Logout(token string) error
	GetAllUsers() ([]UserListingResponse, error)
	UpdateUserAccessAndRole(email string, isActive bool, role string) error
}
