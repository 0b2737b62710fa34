package books

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bookkeeper/pkg/domain"
)

// DefaultBaseURL is the public Volumes search endpoint.
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

const (
	defaultPageSize    = 20
	genreStartIndexMax = 30
)

// APIError carries the upstream status and message of a failed volumes call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("volumes api: status %d", e.Status)
	}
	return fmt.Sprintf("volumes api: status %d: %s", e.Status, e.Message)
}

// Client searches the public volumes catalog. Requests are unauthenticated
// aside from the optional API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a volumes client. baseURL may be empty for the default.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
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

type searchPayload struct {
	Items []volumePayload `json:"items"`
}

// SearchByKeyword runs a free-text volume search and keeps only results with
// a cover thumbnail.
func (c *Client) SearchByKeyword(ctx context.Context, term string) ([]domain.Volume, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("maxResults", strconv.Itoa(defaultPageSize))
	params.Set("printType", "books")
	return c.search(ctx, params)
}

// SearchBySubject fetches a page of English-language volumes for a subject.
// The start index is randomized so repeated loads surface different titles.
func (c *Client) SearchBySubject(ctx context.Context, subject string) ([]domain.Volume, error) {
	params := url.Values{}
	params.Set("q", "subject:"+subject)
	params.Set("maxResults", strconv.Itoa(defaultPageSize))
	params.Set("startIndex", strconv.Itoa(rand.Intn(genreStartIndexMax)))
	params.Set("printType", "books")
	params.Set("langRestrict", "en")
	return c.search(ctx, params)
}

func (c *Client) search(ctx context.Context, params url.Values) ([]domain.Volume, error) {
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build volumes request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("volumes request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var errPayload struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errPayload); decodeErr == nil {
			apiErr.Message = errPayload.Error.Message
		}
		return nil, apiErr
	}

	var payload searchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode volumes response: %w", err)
	}

	volumes := make([]domain.Volume, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.VolumeInfo.ImageLinks.Thumbnail == "" {
			continue
		}
		volumes = append(volumes, domain.Volume{
			ID:            item.ID,
			Title:         item.VolumeInfo.Title,
			Authors:       item.VolumeInfo.Authors,
			Thumbnail:     item.VolumeInfo.ImageLinks.Thumbnail,
			AverageRating: item.VolumeInfo.AverageRating,
		})
	}
	return volumes, nil
}
