package shelf

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"bookkeeper/internal/util"
	"bookkeeper/pkg/domain"
)

// Loader fetches the user's shelves and their books.
type Loader struct {
	client *Client
}

// NewLoader constructs a loader over the given client.
func NewLoader(client *Client) *Loader {
	return &Loader{client: client}
}

// Handlers receive progressive load updates. Both are optional. Callbacks are
// serialized: at most one runs at a time, so callers need no locking of
// their own state.
type Handlers struct {
	// OnShelves fires once with the retained shelf set, before any books load.
	OnShelves func(shelves []domain.Shelf)
	// OnShelfLoaded fires once per retained shelf as its fetch settles.
	// Shelves arrive in arbitrary order; treat each delivery as the full,
	// final book list for that shelf.
	OnShelfLoaded func(shelfID string, books []domain.Volume)
}

// Result is the aggregate of a completed load.
type Result struct {
	// Shelves is the retained shelf set with VolumeCount refreshed from the
	// books actually fetched.
	Shelves []domain.Shelf
	// Books maps shelf ID to that shelf's loaded books.
	Books map[string][]domain.Volume
}

// Load lists the user's shelves, retains those with at least one item plus
// the recommended shelves (surfaced even when empty), orders them for
// display, and fetches the retained shelves' books concurrently. Per-shelf failures degrade to an
// empty list for that shelf only; a failure listing the shelves themselves is
// fatal. Load returns only after every launched fetch has settled, so the
// return doubles as the completion signal regardless of outcome.
//
// A 401/403 from the remote API means the books credential is no longer
// valid: Load returns ErrSessionExpired and the caller should discard the
// credential.
func (l *Loader) Load(ctx context.Context, token string, h Handlers) (*Result, error) {
	if token == "" {
		return nil, ErrSessionExpired
	}

	shelves, err := l.client.ListShelves(ctx, token)
	if err != nil {
		if IsAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("list shelves: %w", err)
	}

	retained := make([]domain.Shelf, 0, len(shelves))
	for _, s := range shelves {
		if s.VolumeCount > 0 || IsRecommended(s.ID) {
			retained = append(retained, s)
		}
	}
	sort.SliceStable(retained, func(i, j int) bool {
		return displayRank(retained[i].ID) < displayRank(retained[j].ID)
	})
	if h.OnShelves != nil {
		h.OnShelves(retained)
	}

	res := &Result{
		Shelves: retained,
		Books:   make(map[string][]domain.Volume, len(retained)),
	}

	var mu sync.Mutex
	deliver := func(shelfID string, books []domain.Volume) {
		mu.Lock()
		defer mu.Unlock()
		res.Books[shelfID] = books
		for i := range res.Shelves {
			if res.Shelves[i].ID == shelfID {
				res.Shelves[i].VolumeCount = len(books)
			}
		}
		if h.OnShelfLoaded != nil {
			h.OnShelfLoaded(shelfID, books)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range retained {
		s := s
		g.Go(func() error {
			books, err := l.client.ListVolumes(gctx, token, s.ID)
			if err != nil {
				// Non-fatal: this shelf renders empty, siblings proceed.
				util.LoggerFromContext(ctx).Warn("shelf load failed",
					"shelf_id", s.ID, "err", err)
				books = nil
			}
			deliver(s.ID, books)
			return nil
		})
	}
	_ = g.Wait()

	return res, nil
}
