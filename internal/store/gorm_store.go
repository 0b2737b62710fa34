package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bookkeeper/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &ProfileModel{}, &ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// UpsertUser creates the record on first sign-in or merges refreshed fields,
// preserving created_at. The existence check and conditional write are not in
// one transaction level that would make this linearizable under concurrent
// sign-ins for the same uid; last writer wins on the refreshed fields, which
// is acceptable since every writer holds the same verified identity.
func (s *GormStore) UpsertUser(u domain.User) (bool, error) {
	var existing UserModel
	err := s.db.First(&existing, "uid = ?", u.UID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		model := userToModel(u)
		if createErr := s.db.Create(&model).Error; createErr != nil {
			return false, createErr
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	updates := map[string]any{
		"email":         u.Email,
		"last_login_at": u.LastLoginAt,
	}
	if u.Name != "" {
		updates["name"] = u.Name
	}
	if u.Picture != "" {
		updates["picture"] = u.Picture
	}
	return false, s.db.Model(&UserModel{}).Where("uid = ?", u.UID).Updates(updates).Error
}

// GetUser returns a user by uid.
func (s *GormStore) GetUser(uid string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetProfile returns a profile by uid. Absence is not an error.
func (s *GormStore) GetProfile(uid string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// MergeProfile upserts only the provided fields and stamps updated_at.
func (s *GormStore) MergeProfile(uid string, fields domain.ProfileFields) error {
	updates := profileUpdates(fields)
	updates["updated_at"] = time.Now().UTC()
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing ProfileModel
		err := tx.First(&existing, "uid = ?", uid).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model := ProfileModel{UID: uid}
			applyProfileFields(&model, fields)
			model.UpdatedAt = updates["updated_at"].(time.Time)
			return tx.Create(&model).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&ProfileModel{}).Where("uid = ?", uid).Updates(updates).Error
	})
}

// CreateReview stores a new review document.
func (s *GormStore) CreateReview(r domain.Review) error {
	model := reviewToModel(r)
	return s.db.Create(&model).Error
}

// GetReview retrieves a review by ID.
func (s *GormStore) GetReview(id string) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

// UpdateReview applies the non-nil patch fields and refreshes updated_at.
func (s *GormStore) UpdateReview(id string, patch domain.ReviewPatch) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Rating != nil {
		updates["rating"] = *patch.Rating
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Text != nil {
		updates["text"] = *patch.Text
	}
	return s.db.Model(&ReviewModel{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteReview removes a review document.
func (s *GormStore) DeleteReview(id string) error {
	return s.db.Delete(&ReviewModel{}, "id = ?", id).Error
}

// ListReviewsByBook returns reviews for a book, newest first.
func (s *GormStore) ListReviewsByBook(bookID string) ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Where("book_id = ?", bookID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

func profileUpdates(fields domain.ProfileFields) map[string]any {
	updates := map[string]any{}
	if fields.FavBook != nil {
		updates["fav_book"] = *fields.FavBook
	}
	if fields.FavGenre != nil {
		updates["fav_genre"] = *fields.FavGenre
	}
	if fields.FavCharacter != nil {
		updates["fav_character"] = *fields.FavCharacter
	}
	if fields.FavAuthor != nil {
		updates["fav_author"] = *fields.FavAuthor
	}
	if fields.Bio != nil {
		updates["bio"] = *fields.Bio
	}
	return updates
}

func applyProfileFields(model *ProfileModel, fields domain.ProfileFields) {
	if fields.FavBook != nil {
		model.FavBook = *fields.FavBook
	}
	if fields.FavGenre != nil {
		model.FavGenre = *fields.FavGenre
	}
	if fields.FavCharacter != nil {
		model.FavCharacter = *fields.FavCharacter
	}
	if fields.FavAuthor != nil {
		model.FavAuthor = *fields.FavAuthor
	}
	if fields.Bio != nil {
		model.Bio = *fields.Bio
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		UID:         u.UID,
		Email:       u.Email,
		Name:        u.Name,
		Picture:     u.Picture,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		UID:         m.UID,
		Email:       m.Email,
		Name:        m.Name,
		Picture:     m.Picture,
		CreatedAt:   m.CreatedAt,
		LastLoginAt: m.LastLoginAt,
	}
}

func profileFromModel(m ProfileModel) domain.Profile {
	return domain.Profile{
		UID:          m.UID,
		FavBook:      m.FavBook,
		FavGenre:     m.FavGenre,
		FavCharacter: m.FavCharacter,
		FavAuthor:    m.FavAuthor,
		Bio:          m.Bio,
		UpdatedAt:    m.UpdatedAt,
	}
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{
		ID:        r.ID,
		BookID:    r.BookID,
		BookTitle: r.BookTitle,
		UserID:    r.UserID,
		UserName:  r.UserName,
		FirstName: r.FirstName,
		Rating:    r.Rating,
		Title:     r.Title,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:        m.ID,
		BookID:    m.BookID,
		BookTitle: m.BookTitle,
		UserID:    m.UserID,
		UserName:  m.UserName,
		FirstName: m.FirstName,
		Rating:    m.Rating,
		Title:     m.Title,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
