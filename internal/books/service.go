package books

import (
	"context"
	"errors"
	"strings"

	"bookkeeper/internal/util"
	"bookkeeper/pkg/domain"
)

// ErrUnknownGenre rejects subjects outside the browsable set.
var ErrUnknownGenre = errors.New("unknown genre")

// Genres are the browsable subject pages, in display order.
var Genres = []string{"fantasy", "romance", "mystery", "horror", "manga"}

func knownGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Service answers search and genre lookups through the cache, falling back to
// the volumes API on a miss. Cache failures degrade to an uncached lookup.
type Service struct {
	client *Client
	cache  *Cache
}

// NewService wires the volumes client with its result cache. cache may be nil
// to disable caching.
func NewService(client *Client, cache *Cache) *Service {
	return &Service{client: client, cache: cache}
}

// Search runs a keyword search, serving from cache when possible.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Volume, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Volume{}, nil
	}
	key := "books:search:" + strings.ToLower(term)
	return s.cached(ctx, key, func() ([]domain.Volume, error) {
		return s.client.SearchByKeyword(ctx, term)
	})
}

// Genre returns a page of volumes for one of the browsable subjects.
func (s *Service) Genre(ctx context.Context, genre string) ([]domain.Volume, error) {
	genre = strings.ToLower(strings.TrimSpace(genre))
	if !knownGenre(genre) {
		return nil, ErrUnknownGenre
	}
	key := "books:genre:" + genre
	return s.cached(ctx, key, func() ([]domain.Volume, error) {
		return s.client.SearchBySubject(ctx, genre)
	})
}

func (s *Service) cached(ctx context.Context, key string, fetch func() ([]domain.Volume, error)) ([]domain.Volume, error) {
	if s.cache != nil {
		volumes, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			util.LoggerFromContext(ctx).Warn("books cache read failed", "key", key, "err", err)
		} else if hit {
			return volumes, nil
		}
	}

	volumes, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, volumes); err != nil {
			util.LoggerFromContext(ctx).Warn("books cache write failed", "key", key, "err", err)
		}
	}
	return volumes, nil
}
