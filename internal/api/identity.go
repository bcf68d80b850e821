package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"today-planner/internal/auth"
	"today-planner/internal/repository"
)

var (
	errUnauthorized   = errors.New("missing or invalid bearer token")
	errNoDefaultOwner = errors.New("default user not found, seed the database first")
)

// OwnerResolver decides which user a request acts for.
type OwnerResolver interface {
	Resolve(ctx context.Context, r *http.Request) (string, error)
	// Authenticated reports whether callers prove their identity with a token.
	Authenticated() bool
}

// Identity resolves bearer tokens when a signer is set, and the default user otherwise.
type Identity struct {
	signer       *auth.Signer
	users        *repository.UserRepository
	defaultEmail string
}

func NewIdentity(signer *auth.Signer, users *repository.UserRepository, defaultEmail string) *Identity {
	return &Identity{signer: signer, users: users, defaultEmail: defaultEmail}
}

func (i *Identity) Authenticated() bool {
	return i.signer != nil
}

func (i *Identity) Resolve(ctx context.Context, r *http.Request) (string, error) {
	if i.signer == nil {
		user, err := i.users.FindByEmail(ctx, i.defaultEmail)
		switch {
		case err == nil:
			return user.ID, nil
		case errors.Is(err, repository.ErrNotFound):
			return "", errNoDefaultOwner
		default:
			return "", fmt.Errorf("find default user: %w", err)
		}
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errUnauthorized
	}
	uid, err := i.signer.Parse(strings.TrimSpace(token))
	if err != nil {
		return "", errUnauthorized
	}

	if _, err := i.users.FindByID(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", errUnauthorized
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	return uid, nil
}
