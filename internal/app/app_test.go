package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookkeeper/internal/store"
	"bookkeeper/internal/usertoken"
	"bookkeeper/pkg/domain"
)

func newApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return New(st), st
}

func TestVerifyUpsertCreatesThenRefreshes(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	u, err := a.VerifyUpsert(ctx, usertoken.Identity{
		UID: "u1", Email: "ada@example.com", Name: "Ada Lovelace",
	})
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt stamped on first sign-in")
	}
	created := u.CreatedAt

	time.Sleep(5 * time.Millisecond)
	u, err = a.VerifyUpsert(ctx, usertoken.Identity{
		UID: "u1", Email: "ada@example.com", Name: "Ada King",
	})
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if !u.CreatedAt.Equal(created) {
		t.Fatal("CreatedAt must survive later sign-ins")
	}
	if u.Name != "Ada King" {
		t.Fatalf("expected refreshed name, got %q", u.Name)
	}
	if !u.LastLoginAt.After(created) {
		t.Fatal("expected LastLoginAt refreshed")
	}
}

func TestProfileAbsentIsNil(t *testing.T) {
	a, _ := newApp(t)
	p, err := a.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

func TestUpdateProfileMerges(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	book := "Dune"
	genre := "sci-fi"
	if _, err := a.UpdateProfile(ctx, "u1", domain.ProfileFields{FavBook: &book, FavGenre: &genre}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	bio := "reader"
	p, err := a.UpdateProfile(ctx, "u1", domain.ProfileFields{Bio: &bio})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if p.FavBook != "Dune" || p.FavGenre != "sci-fi" || p.Bio != "reader" {
		t.Fatalf("expected merged profile, got %+v", p)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ReviewInput
	}{
		{"missing book", ReviewInput{Rating: 3, Text: "ok"}},
		{"rating too low", ReviewInput{BookID: "b1", Rating: 0, Text: "ok"}},
		{"rating too high", ReviewInput{BookID: "b1", Rating: 6, Text: "ok"}},
		{"blank text", ReviewInput{BookID: "b1", Rating: 3, Text: "   "}},
	}
	for _, tc := range cases {
		if _, err := a.CreateReview(ctx, "u1", tc.in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestCreateReviewAllowsRepeatReviewsOfSameBook(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := a.CreateReview(ctx, "u1", ReviewInput{BookID: "b1", Rating: 4, Text: "good"}); err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
	}
	reviews, err := a.ListReviews(ctx, "b1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
}

func TestListReviewsResolvesDisplayNames(t *testing.T) {
	a, st := newApp(t)
	ctx := context.Background()

	// u1 has a live user record whose name changed after the review.
	if _, err := a.VerifyUpsert(ctx, usertoken.Identity{UID: "u1", Email: "a@x", Name: "Ada Lovelace"}); err != nil {
		t.Fatalf("verify u1: %v", err)
	}
	if _, err := a.CreateReview(ctx, "u1", ReviewInput{BookID: "b1", Rating: 5, Text: "great"}); err != nil {
		t.Fatalf("review u1: %v", err)
	}
	if _, err := a.VerifyUpsert(ctx, usertoken.Identity{UID: "u1", Email: "a@x", Name: "Grace Hopper"}); err != nil {
		t.Fatalf("rename u1: %v", err)
	}

	// u2's user record is gone; only the denormalized name survives.
	if err := st.CreateReview(domain.Review{
		ID: "r2", BookID: "b1", UserID: "u2", UserName: "Mary Shelley",
		Rating: 3, Text: "fine", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed r2: %v", err)
	}

	// u3 left nothing to resolve a name from.
	if err := st.CreateReview(domain.Review{
		ID: "r3", BookID: "b1", UserID: "u3",
		Rating: 2, Text: "meh", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed r3: %v", err)
	}

	reviews, err := a.ListReviews(ctx, "b1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byUser := map[string]string{}
	for _, r := range reviews {
		byUser[r.UserID] = r.FirstName
	}
	if byUser["u1"] != "Grace" {
		t.Errorf("u1: live record should win, got %q", byUser["u1"])
	}
	if byUser["u2"] != "Mary" {
		t.Errorf("u2: denormalized name should be used, got %q", byUser["u2"])
	}
	if byUser["u3"] != "Anonymous" {
		t.Errorf("u3: expected Anonymous, got %q", byUser["u3"])
	}
}

func TestUpdateReviewOwnershipAndPatch(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	r, err := a.CreateReview(ctx, "u1", ReviewInput{BookID: "b1", Rating: 4, Title: "nice", Text: "good"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := a.UpdateReview(ctx, "u2", r.ID, domain.ReviewPatch{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if _, err := a.UpdateReview(ctx, "u1", "missing", domain.ReviewPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rating := 2
	updated, err := a.UpdateReview(ctx, "u1", r.ID, domain.ReviewPatch{Rating: &rating})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Rating != 2 || updated.Title != "nice" || updated.Text != "good" {
		t.Fatalf("expected partial patch, got %+v", updated)
	}

	bad := 9
	if _, err := a.UpdateReview(ctx, "u1", r.ID, domain.ReviewPatch{Rating: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteReviewOwnership(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()

	r, err := a.CreateReview(ctx, "u1", ReviewInput{BookID: "b1", Rating: 4, Text: "good"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.DeleteReview(ctx, "u2", r.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := a.DeleteReview(ctx, "u1", r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := a.DeleteReview(ctx, "u1", r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
