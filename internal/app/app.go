// Package app implements the domain operations behind the HTTP surface:
// sign-in bookkeeping, profiles, and reviews. Shelf and catalog operations
// live in their own packages because they talk to remote APIs rather than
// the store.
package app

import "bookkeeper/internal/store"

// App exposes the storage-backed operations.
type App struct {
	store store.Store
}

// New builds the application over the given store.
func New(s store.Store) *App {
	return &App{store: s}
}
