package domain

import "time"

// User is one authenticated Google identity. CreatedAt is written once on
// first sign-in; LastLoginAt is refreshed on every verified request.
type User struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	Picture     string    `json:"picture,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// Profile is the free-form per-user profile document.
type Profile struct {
	UID          string    `json:"uid"`
	FavBook      string    `json:"favBook,omitempty"`
	FavGenre     string    `json:"favGenre,omitempty"`
	FavCharacter string    `json:"favCharacter,omitempty"`
	FavAuthor    string    `json:"favAuthor,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileFields carries a partial profile update. Nil fields are left
// untouched (merge semantics).
type ProfileFields struct {
	FavBook      *string `json:"favBook,omitempty"`
	FavGenre     *string `json:"favGenre,omitempty"`
	FavCharacter *string `json:"favCharacter,omitempty"`
	FavAuthor    *string `json:"favAuthor,omitempty"`
	Bio          *string `json:"bio,omitempty"`
}

// Review is one user's opinion of one book. UserName and FirstName are
// denormalized at creation time so the review stays renderable even when the
// author's user record is gone.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	BookTitle string    `json:"bookTitle,omitempty"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReviewPatch carries a partial review update. Nil fields keep their stored
// values.
type ReviewPatch struct {
	Rating *int    `json:"rating,omitempty"`
	Title  *string `json:"title,omitempty"`
	Text   *string `json:"text,omitempty"`
}

// Shelf is one of the user's remote book collections. IDs are well-known
// remote-assigned constants; VolumeCount is advisory and refreshed locally
// after each per-shelf load.
type Shelf struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	VolumeCount int    `json:"volumeCount"`
}

// Volume is a remote book record. It is externally owned; only the fields the
// UI renders are decoded, everything else stays with the remote system.
type Volume struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	AverageRating float64  `json:"averageRating,omitempty"`
}
