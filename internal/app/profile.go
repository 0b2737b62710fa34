package app

import (
	"context"
	"fmt"

	"bookkeeper/pkg/domain"
)

// Profile returns the caller's profile, or nil when none has been written
// yet. An absent profile is a normal state, not an error.
func (a *App) Profile(ctx context.Context, uid string) (*domain.Profile, error) {
	p, ok, err := a.store.GetProfile(uid)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpdateProfile merges the provided fields into the caller's profile,
// creating it on first write, and returns the merged document.
func (a *App) UpdateProfile(ctx context.Context, uid string, fields domain.ProfileFields) (domain.Profile, error) {
	if err := a.store.MergeProfile(uid, fields); err != nil {
		return domain.Profile{}, fmt.Errorf("merge profile: %w", err)
	}
	p, ok, err := a.store.GetProfile(uid)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("reload profile: %w", err)
	}
	if !ok {
		return domain.Profile{}, fmt.Errorf("reload profile %s: %w", uid, ErrNotFound)
	}
	return p, nil
}
