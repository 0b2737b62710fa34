package store

import (
	"sort"
	"sync"
	"time"

	"bookkeeper/pkg/domain"
)

// MemoryStore keeps documents in-process. Used in tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	profiles map[string]domain.Profile
	reviews  map[string]domain.Review
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		profiles: make(map[string]domain.Profile),
		reviews:  make(map[string]domain.Review),
	}
}

// UpsertUser creates or merge-updates a user record, preserving CreatedAt.
func (m *MemoryStore) UpsertUser(u domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.UID]
	if !ok {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		m.users[u.UID] = u
		return true, nil
	}
	existing.Email = u.Email
	existing.LastLoginAt = u.LastLoginAt
	if u.Name != "" {
		existing.Name = u.Name
	}
	if u.Picture != "" {
		existing.Picture = u.Picture
	}
	m.users[u.UID] = existing
	return false, nil
}

// GetUser returns a user by uid.
func (m *MemoryStore) GetUser(uid string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[uid]
	return u, ok, nil
}

// GetProfile returns a profile by uid.
func (m *MemoryStore) GetProfile(uid string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[uid]
	return p, ok, nil
}

// MergeProfile upserts only the provided fields.
func (m *MemoryStore) MergeProfile(uid string, fields domain.ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[uid]
	p.UID = uid
	if fields.FavBook != nil {
		p.FavBook = *fields.FavBook
	}
	if fields.FavGenre != nil {
		p.FavGenre = *fields.FavGenre
	}
	if fields.FavCharacter != nil {
		p.FavCharacter = *fields.FavCharacter
	}
	if fields.FavAuthor != nil {
		p.FavAuthor = *fields.FavAuthor
	}
	if fields.Bio != nil {
		p.Bio = *fields.Bio
	}
	p.UpdatedAt = time.Now().UTC()
	m.profiles[uid] = p
	return nil
}

// CreateReview stores a review.
func (m *MemoryStore) CreateReview(r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[r.ID] = r
	return nil
}

// GetReview retrieves a review by ID.
func (m *MemoryStore) GetReview(id string) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

// UpdateReview applies non-nil patch fields and refreshes UpdatedAt.
func (m *MemoryStore) UpdateReview(id string, patch domain.ReviewPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil
	}
	if patch.Rating != nil {
		r.Rating = *patch.Rating
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Text != nil {
		r.Text = *patch.Text
	}
	r.UpdatedAt = time.Now().UTC()
	m.reviews[id] = r
	return nil
}

// DeleteReview removes a review.
func (m *MemoryStore) DeleteReview(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reviews, id)
	return nil
}

// ListReviewsByBook returns reviews for a book, newest first.
func (m *MemoryStore) ListReviewsByBook(bookID string) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, 0)
	for _, r := range m.reviews {
		if r.BookID == bookID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}
