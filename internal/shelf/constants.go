package shelf

import "bookkeeper/pkg/domain"

// Well-known shelf IDs. These are remote-assigned constants, stable across
// accounts.
const (
	Favorites      = "0"
	Purchased      = "1"
	ToRead         = "2"
	ReadingNow     = "3"
	HaveRead       = "4"
	Reviewed       = "5"
	MyEbooks       = "7"
	RecommendedFor = "8"
)

// UserCollection is the set of mutually exclusive shelves the user actively
// curates. A book is expected to occupy at most one of them at a time. The
// order here is the scan order used to find a book's current shelf.
var UserCollection = []string{Favorites, ToRead, ReadingNow, HaveRead}

// RecommendedShelves are read-only, remotely curated shelves. They are
// surfaced even when remotely reported empty and removal from them is never
// attempted.
var RecommendedShelves = []string{RecommendedFor}

// DisplayOrder is the preferred rendering order for shelves.
var DisplayOrder = []string{ReadingNow, ToRead, Favorites, HaveRead, MyEbooks, Purchased, RecommendedFor}

// displayRank positions a shelf within DisplayOrder; unknown shelves sort
// after the known ones.
func displayRank(id string) int {
	for i, s := range DisplayOrder {
		if s == id {
			return i
		}
	}
	return len(DisplayOrder)
}

// IsUserCollection reports whether id is one of the four user-curated shelves.
func IsUserCollection(id string) bool {
	for _, s := range UserCollection {
		if s == id {
			return true
		}
	}
	return false
}

// IsRecommended reports whether id is a recommendation shelf.
func IsRecommended(id string) bool {
	for _, s := range RecommendedShelves {
		if s == id {
			return true
		}
	}
	return false
}

// FindCurrentCollection scans the user-collection shelves in order and
// returns the first one whose loaded book list contains bookID, or "" when
// the book is unshelved within the tracked collections. Non-tracked shelves
// (purchased, my-ebooks) are not scanned.
func FindCurrentCollection(shelfBooks map[string][]domain.Volume, bookID string) string {
	for _, shelfID := range UserCollection {
		for _, book := range shelfBooks[shelfID] {
			if book.ID == bookID {
				return shelfID
			}
		}
	}
	return ""
}
