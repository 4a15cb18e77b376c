package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin login disabled")
)

const adminTokenTTL = 15 * time.Minute

// Admin issues admin tokens to callers that know the admin password. The
// password is only ever held as a bcrypt hash.
type Admin struct {
	hash   []byte
	tokens *TokenMaker
}

func NewAdmin(passwordHash string, tokens *TokenMaker) *Admin {
	return &Admin{hash: []byte(passwordHash), tokens: tokens}
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (a *Admin) Login(password string) (string, error) {
	if len(a.hash) == 0 || a.tokens == nil {
		return "", ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.tokens.New(RoleAdmin, RoleAdmin, adminTokenTTL)
}
