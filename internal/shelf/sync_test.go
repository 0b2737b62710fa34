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

func TestFindCurrentCollectionScansUserShelvesOnly(t *testing.T) {
	shelfBooks := map[string][]domain.Volume{
		Purchased: {{ID: "vol-1"}},
		ToRead:    {{ID: "vol-2"}},
	}
	if got := FindCurrentCollection(shelfBooks, "vol-2"); got != ToRead {
		t.Fatalf("expected %s, got %q", ToRead, got)
	}
	// vol-1 sits only on a non-tracked shelf.
	if got := FindCurrentCollection(shelfBooks, "vol-1"); got != "" {
		t.Fatalf("expected unshelved, got %q", got)
	}
}

func TestMoveAddsThenRemovesFromOriginal(t *testing.T) {
	var added, removed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/bookshelves/4/addVolume", func(w http.ResponseWriter, r *http.Request) {
		added.Add(1)
	})
	mux.HandleFunc("/bookshelves/2/removeVolume", func(w http.ResponseWriter, r *http.Request) {
		removed.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL))
	res, err := syncer.Move(context.Background(), "tok", "vol-1", HaveRead, ToRead)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.State != MoveConsistent {
		t.Fatalf("expected consistent move, got %s", res.State)
	}
	if added.Load() != 1 || removed.Load() != 1 {
		t.Fatalf("expected 1 add and 1 remove, got %d/%d", added.Load(), removed.Load())
	}
}

func TestMoveToleratesCompensationFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bookshelves/4/addVolume", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/bookshelves/0/removeVolume", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL))
	res, err := syncer.Move(context.Background(), "tok", "vol-1", HaveRead, Favorites)
	if err != nil {
		t.Fatalf("move should succeed once the add lands: %v", err)
	}
	if res.State != MoveNeedsReconcile {
		t.Fatalf("expected needs_reconcile, got %s", res.State)
	}
}

func TestMoveAbortsWhenAddFails(t *testing.T) {
	var removed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/bookshelves/4/addVolume", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"message":"Volume already exists on this shelf"}}`))
	})
	mux.HandleFunc("/bookshelves/2/removeVolume", func(w http.ResponseWriter, r *http.Request) {
		removed.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL))
	_, err := syncer.Move(context.Background(), "tok", "vol-1", HaveRead, ToRead)
	if err == nil {
		t.Fatal("expected add failure to propagate")
	}
	if !IsAlreadyOnShelf(err) {
		t.Fatalf("expected already-on-shelf classification, got %v", err)
	}
	if removed.Load() != 0 {
		t.Fatal("removal must not be attempted after a failed add")
	}
}

func TestMoveSkipsRemovalForNonUserCollectionOrigin(t *testing.T) {
	var removed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/bookshelves/4/addVolume", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		removed.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL))

	// Origin is the recommended shelf: read-only, never removed from.
	res, err := syncer.Move(context.Background(), "tok", "vol-1", HaveRead, RecommendedFor)
	if err != nil || res.State != MoveConsistent {
		t.Fatalf("move: res=%+v err=%v", res, err)
	}
	// Origin equals target: nothing to undo.
	res, err = syncer.Move(context.Background(), "tok", "vol-1", HaveRead, HaveRead)
	if err != nil || res.State != MoveConsistent {
		t.Fatalf("move to same shelf: res=%+v err=%v", res, err)
	}
	if removed.Load() != 0 {
		t.Fatalf("no removal expected, got %d", removed.Load())
	}
}

func TestMoveAndRemoveRequireToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL))
	if _, err := syncer.Move(context.Background(), "", "vol-1", HaveRead, ToRead); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("move: expected ErrSessionExpired, got %v", err)
	}
	if err := syncer.Remove(context.Background(), "", "vol-1", ToRead); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("remove: expected ErrSessionExpired, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("no remote call expected without a token")
	}
}

func TestRemove(t *testing.T) {
	var removed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/bookshelves/0/removeVolume", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("volumeId") != "vol-9" {
			t.Errorf("unexpected volumeId %q", r.URL.Query().Get("volumeId"))
		}
		removed.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	syncer := NewSyncer(NewClient(srv.URL))
	if err := syncer.Remove(context.Background(), "tok", "vol-9", Favorites); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Load() != 1 {
		t.Fatal("expected one removal call")
	}
}
