package shelf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookkeeper/pkg/domain"
)

// DefaultBaseURL is the authenticated personal-library API.
const DefaultBaseURL = "https://www.googleapis.com/books/v1/mylibrary"

// ErrSessionExpired indicates the caller's books credential is absent or was
// rejected by the remote API. The credential should be discarded and the user
// re-authenticated.
var ErrSessionExpired = errors.New("session expired")

// Client calls the personal-library shelves API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a remote shelves API error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a shelves API client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListShelves returns all of the user's shelves, unfiltered.
func (c *Client) ListShelves(ctx context.Context, token string) ([]domain.Shelf, error) {
	var resp struct {
		Items []shelfPayload `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/bookshelves", token, &resp); err != nil {
		return nil, err
	}
	shelves := make([]domain.Shelf, 0, len(resp.Items))
	for _, item := range resp.Items {
		shelves = append(shelves, item.toDomain())
	}
	return shelves, nil
}

// ListVolumes returns the books on one shelf, in remote order.
func (c *Client) ListVolumes(ctx context.Context, token, shelfID string) ([]domain.Volume, error) {
	var resp struct {
		Items []volumePayload `json:"items"`
	}
	path := fmt.Sprintf("/bookshelves/%s/volumes", url.PathEscape(shelfID))
	if err := c.doJSON(ctx, http.MethodGet, path, token, &resp); err != nil {
		return nil, err
	}
	volumes := make([]domain.Volume, 0, len(resp.Items))
	for _, item := range resp.Items {
		volumes = append(volumes, item.toDomain())
	}
	return volumes, nil
}

// AddVolume puts a book on a shelf.
func (c *Client) AddVolume(ctx context.Context, token, shelfID, volumeID string) error {
	path := fmt.Sprintf("/bookshelves/%s/addVolume", url.PathEscape(shelfID))
	return c.doJSON(ctx, http.MethodPost, path+"?volumeId="+url.QueryEscape(volumeID), token, nil)
}

// RemoveVolume takes a book off a shelf.
func (c *Client) RemoveVolume(ctx context.Context, token, shelfID, volumeID string) error {
	path := fmt.Sprintf("/bookshelves/%s/removeVolume", url.PathEscape(shelfID))
	return c.doJSON(ctx, http.MethodPost, path+"?volumeId="+url.QueryEscape(volumeID), token, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := strings.TrimSpace(errResp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsAuthError reports whether err is a remote 401/403, meaning the books
// credential is no longer valid.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsAlreadyOnShelf reports whether err is the remote "already exists"
// rejection for an add.
func IsAlreadyOnShelf(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "already exists")
}

type shelfPayload struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	VolumeCount int         `json:"volumeCount"`
}

func (p shelfPayload) toDomain() domain.Shelf {
	return domain.Shelf{
		ID:          p.ID.String(),
		Title:       p.Title,
		VolumeCount: p.VolumeCount,
	}
}

type volumePayload struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		AverageRating float64  `json:"averageRating"`
		ImageLinks    struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (p volumePayload) toDomain() domain.Volume {
	return domain.Volume{
		ID:            p.ID,
		Title:         p.VolumeInfo.Title,
		Authors:       p.VolumeInfo.Authors,
		Thumbnail:     p.VolumeInfo.ImageLinks.Thumbnail,
		AverageRating: p.VolumeInfo.AverageRating,
	}
}
