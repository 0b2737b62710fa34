package store

import "bookkeeper/pkg/domain"

// Store defines persistence operations for users, profiles, and reviews.
// Implementations provide single-document upserts only; there are no
// multi-document transactions.
type Store interface {
	// users
	// UpsertUser creates the record on first sign-in (stamping CreatedAt) or
	// merges refreshed fields into an existing record, preserving CreatedAt.
	// Returns true when the record was created.
	UpsertUser(u domain.User) (bool, error)
	GetUser(uid string) (domain.User, bool, error)

	// profiles
	GetProfile(uid string) (domain.Profile, bool, error)
	// MergeProfile upserts the caller's profile with the provided fields only;
	// nil fields keep their stored values.
	MergeProfile(uid string, fields domain.ProfileFields) error

	// reviews
	CreateReview(r domain.Review) error
	GetReview(id string) (domain.Review, bool, error)
	// UpdateReview applies the non-nil patch fields and refreshes UpdatedAt.
	UpdateReview(id string, patch domain.ReviewPatch) error
	DeleteReview(id string) error
	// ListReviewsByBook returns reviews for a book ordered by creation time
	// descending.
	ListReviewsByBook(bookID string) ([]domain.Review, error)
}
