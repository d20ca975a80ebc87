package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/tazhibayda/posts-service/internal/domain"
	"github.com/tazhibayda/posts-service/internal/repo"
	"github.com/tazhibayda/posts-service/internal/security"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Users registers accounts and issues HS256 access tokens for them.
type Users struct {
	Store     UserStore
	JWTSecret string
	AccessTTL time.Duration
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func between(s string, min, max int) bool { return len(s) >= min && len(s) <= max }

func (u *Users) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !between(name, 3, 256) {
		return nil, reject(ReasonValidation, "username must be 3 to 256 characters")
	}
	if !between(email, 3, 256) {
		return nil, reject(ReasonValidation, "email must be 3 to 256 characters")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, reject(ReasonValidation, "email is invalid")
	}
	if !between(in.Password, 6, 1024) {
		return nil, reject(ReasonValidation, "password must be 6 to 1024 characters")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, &Rejection{Reason: ReasonStore, Message: "hash failed", Err: err}
	}
	user := &domain.User{Username: name, Email: email, PasswordHash: hash}
	if err := u.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrEmailExists) {
			return nil, reject(ReasonConflict, "Email already exists")
		}
		return nil, storeError("create user", err)
	}
	return user, nil
}

// Login returns a signed access token for valid credentials.
func (u *Users) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := u.Store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", storeError("find user", err)
	}
	if user == nil || !security.CheckPassword(user.PasswordHash, password) {
		return "", ErrUnauthorized
	}
	tok, err := security.MakeAccess(u.JWTSecret, user.ID.Hex(), user.Email, u.AccessTTL)
	if err != nil {
		return "", &Rejection{Reason: ReasonStore, Message: "token error", Err: err}
	}
	return tok, nil
}
