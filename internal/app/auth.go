package app

import (
	"context"
	"fmt"
	"time"

	"bookkeeper/internal/usertoken"
	"bookkeeper/internal/util"
	"bookkeeper/pkg/domain"
)

// VerifyUpsert records a verified sign-in: first sign-in creates the user
// record, later ones refresh the mutable fields and the login timestamp.
// Returns the stored record.
func (a *App) VerifyUpsert(ctx context.Context, id usertoken.Identity) (domain.User, error) {
	created, err := a.store.UpsertUser(domain.User{
		UID:         id.UID,
		Email:       id.Email,
		Name:        id.Name,
		Picture:     id.Picture,
		LastLoginAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	if created {
		util.LoggerFromContext(ctx).Info("user created", "uid", id.UID)
	}

	u, ok, err := a.store.GetUser(id.UID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return domain.User{}, fmt.Errorf("load user %s: %w", id.UID, ErrNotFound)
	}
	return u, nil
}
