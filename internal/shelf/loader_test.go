package shelf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"bookkeeper/pkg/domain"
)

func newLibraryServer(t *testing.T, shelvesJSON string, volumes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/bookshelves", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(shelvesJSON))
	})
	for shelfID, handler := range volumes {
		mux.HandleFunc("/bookshelves/"+shelfID+"/volumes", handler)
	}
	return httptest.NewServer(mux)
}

func volumesOK(ids ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := `{"items":[`
		for i, id := range ids {
			if i > 0 {
				body += ","
			}
			body += `{"id":"` + id + `","volumeInfo":{"title":"t"}}`
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	}
}

func TestLoadRetainsNonEmptyAndRecommendedShelves(t *testing.T) {
	srv := newLibraryServer(t, `{"items":[
		{"id":0,"title":"Favorites","volumeCount":2},
		{"id":1,"title":"Purchased","volumeCount":0},
		{"id":8,"title":"Books for you","volumeCount":0}
	]}`, map[string]http.HandlerFunc{
		"0": volumesOK("a", "b"),
		"8": volumesOK(),
	})
	defer srv.Close()

	loader := NewLoader(NewClient(srv.URL))
	res, err := loader.Load(context.Background(), "tok", Handlers{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Shelves) != 2 {
		t.Fatalf("expected 2 retained shelves, got %d: %+v", len(res.Shelves), res.Shelves)
	}
	if _, ok := res.Books["1"]; ok {
		t.Fatal("empty non-recommended shelf should be dropped")
	}
	if got := len(res.Books["0"]); got != 2 {
		t.Fatalf("favorites should hold 2 books, got %d", got)
	}
	if books, ok := res.Books["8"]; !ok || len(books) != 0 {
		t.Fatalf("recommended shelf should be present with empty list, got %v", books)
	}
}

func TestLoadRefreshesVolumeCountFromFetchedBooks(t *testing.T) {
	// Remote reports 5 but only returns 1; the local count follows reality.
	srv := newLibraryServer(t, `{"items":[{"id":2,"title":"To read","volumeCount":5}]}`,
		map[string]http.HandlerFunc{"2": volumesOK("only")})
	defer srv.Close()

	loader := NewLoader(NewClient(srv.URL))
	res, err := loader.Load(context.Background(), "tok", Handlers{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Shelves[0].VolumeCount != 1 {
		t.Fatalf("volumeCount not refreshed: %+v", res.Shelves[0])
	}
}

func TestLoadRecommendedFailureIsNonFatal(t *testing.T) {
	srv := newLibraryServer(t, `{"items":[
		{"id":3,"title":"Reading now","volumeCount":1},
		{"id":8,"title":"Books for you","volumeCount":3}
	]}`, map[string]http.HandlerFunc{
		"3": volumesOK("x"),
		"8": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	defer srv.Close()

	var loaded int32
	loader := NewLoader(NewClient(srv.URL))
	res, err := loader.Load(context.Background(), "tok", Handlers{
		OnShelfLoaded: func(string, []domain.Volume) { atomic.AddInt32(&loaded, 1) },
	})
	if err != nil {
		t.Fatalf("load should complete despite recommended failure: %v", err)
	}
	if got := atomic.LoadInt32(&loaded); got != 2 {
		t.Fatalf("every retained shelf should be delivered, got %d deliveries", got)
	}
	if len(res.Books["8"]) != 0 {
		t.Fatal("failed recommended shelf should report empty books")
	}
	if len(res.Books["3"]) != 1 {
		t.Fatal("sibling shelf should be unaffected")
	}
}

func TestLoadAuthFailureReportsSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	loader := NewLoader(NewClient(srv.URL))
	_, err := loader.Load(context.Background(), "stale", Handlers{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestLoadNonAuthListFailureIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	loader := NewLoader(NewClient(srv.URL))
	_, err := loader.Load(context.Background(), "tok", Handlers{})
	if err == nil || errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected generic failure, got %v", err)
	}
}

func TestLoadEmptyTokenNeverCallsRemote(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	loader := NewLoader(NewClient(srv.URL))
	_, err := loader.Load(context.Background(), "", Handlers{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("no remote call expected for empty token")
	}
}
