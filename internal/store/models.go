package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	UID         string    `gorm:"primaryKey"`
	Email       string    `gorm:"not null"`
	Name        string
	Picture     string
	CreatedAt   time.Time `gorm:"not null"`
	LastLoginAt time.Time `gorm:"not null"`
}

type ProfileModel struct {
	UID          string `gorm:"primaryKey"`
	FavBook      string
	FavGenre     string
	FavCharacter string
	FavAuthor    string
	Bio          string
	UpdatedAt    time.Time `gorm:"not null"`
}

type ReviewModel struct {
	ID        string `gorm:"primaryKey"`
	BookID    string `gorm:"not null;index"`
	BookTitle string
	UserID    string `gorm:"not null;index"`
	UserName  string
	FirstName string
	Rating    int    `gorm:"not null"`
	Title     string
	Text      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}
