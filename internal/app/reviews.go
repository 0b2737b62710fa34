package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookkeeper/internal/util"
	"bookkeeper/pkg/domain"
)

const anonymousName = "Anonymous"

// ReviewInput carries the caller-supplied fields of a new review.
type ReviewInput struct {
	BookID    string `json:"bookId"`
	BookTitle string `json:"bookTitle"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

// firstName extracts the leading whitespace-delimited token of a full name.
func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// displayName resolves the name shown next to a review. The live user record
// wins over the name denormalized at creation time; when both are gone the
// review renders as anonymous.
func (a *App) displayName(r domain.Review) string {
	if u, ok, err := a.store.GetUser(r.UserID); err == nil && ok {
		if name := firstName(u.Name); name != "" {
			return name
		}
	}
	if name := firstName(r.UserName); name != "" {
		return name
	}
	return anonymousName
}

// ListReviews returns a book's reviews newest first, with display names
// re-resolved against the current user records.
func (a *App) ListReviews(ctx context.Context, bookID string) ([]domain.Review, error) {
	reviews, err := a.store.ListReviewsByBook(bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	for i := range reviews {
		reviews[i].FirstName = a.displayName(reviews[i])
	}
	return reviews, nil
}

// CreateReview validates and stores a new review for the caller. A user may
// review the same book more than once.
func (a *App) CreateReview(ctx context.Context, uid string, in ReviewInput) (domain.Review, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.BookID == "" {
		return domain.Review{}, fmt.Errorf("%w: bookId is required", ErrValidation)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return domain.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if in.Text == "" {
		return domain.Review{}, fmt.Errorf("%w: text is required", ErrValidation)
	}

	var userName string
	if u, ok, err := a.store.GetUser(uid); err == nil && ok {
		userName = u.Name
	}

	now := time.Now().UTC()
	r := domain.Review{
		ID:        uuid.NewString(),
		BookID:    in.BookID,
		BookTitle: in.BookTitle,
		UserID:    uid,
		UserName:  userName,
		FirstName: firstName(userName),
		Rating:    in.Rating,
		Title:     strings.TrimSpace(in.Title),
		Text:      in.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateReview(r); err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	util.LoggerFromContext(ctx).Info("review created",
		"review_id", r.ID, "book_id", r.BookID, "uid", uid)
	return r, nil
}

// UpdateReview applies a partial patch to the caller's own review.
func (a *App) UpdateReview(ctx context.Context, uid, reviewID string, patch domain.ReviewPatch) (domain.Review, error) {
	existing, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("get review: %w", err)
	}
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	if existing.UserID != uid {
		return domain.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrForbidden)
	}

	if patch.Rating != nil && (*patch.Rating < 1 || *patch.Rating > 5) {
		return domain.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if patch.Text != nil {
		trimmed := strings.TrimSpace(*patch.Text)
		if trimmed == "" {
			return domain.Review{}, fmt.Errorf("%w: text is required", ErrValidation)
		}
		patch.Text = &trimmed
	}

	if err := a.store.UpdateReview(reviewID, patch); err != nil {
		return domain.Review{}, fmt.Errorf("update review: %w", err)
	}
	updated, _, err := a.store.GetReview(reviewID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("reload review: %w", err)
	}
	return updated, nil
}

// DeleteReview removes the caller's own review.
func (a *App) DeleteReview(ctx context.Context, uid, reviewID string) error {
	existing, ok, err := a.store.GetReview(reviewID)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if !ok {
		return fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	if existing.UserID != uid {
		return fmt.Errorf("review %s: %w", reviewID, ErrForbidden)
	}
	if err := a.store.DeleteReview(reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	util.LoggerFromContext(ctx).Info("review deleted", "review_id", reviewID, "uid", uid)
	return nil
}
