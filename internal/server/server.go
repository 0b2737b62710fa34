package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"bookkeeper/internal/app"
	"bookkeeper/internal/books"
	"bookkeeper/internal/ratelimit"
	"bookkeeper/internal/shelf"
	"bookkeeper/internal/usertoken"
	"bookkeeper/internal/util"
	"bookkeeper/pkg/domain"
)

// BooksTokenHeader carries the caller's Google Books access token. It is a
// separate credential from the ID token in the Authorization header and is
// passed explicitly on every shelf request.
const BooksTokenHeader = "X-Books-Token"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	TokenVerifier *usertoken.Verifier
	Loader        *shelf.Loader
	Syncer        *shelf.Syncer
	Books         *books.Service

	RedisAddr                string
	RedisPassword            string
	ReviewRateLimitPerMinute int
}

// Server exposes the HTTP endpoints.
type Server struct {
	app           *app.App
	tokenVerifier *usertoken.Verifier
	loader        *shelf.Loader
	syncer        *shelf.Syncer
	books         *books.Service
	mux           *http.ServeMux
	reviewLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Review rate limiting is
// active only when a Redis address is supplied.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app:           cfg.App,
		tokenVerifier: cfg.TokenVerifier,
		loader:        cfg.Loader,
		syncer:        cfg.Syncer,
		books:         cfg.Books,
		mux:           http.NewServeMux(),
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		limit := cfg.ReviewRateLimitPerMinute
		if limit <= 0 {
			limit = 5
		}
		limiter, err := ratelimit.NewFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "bookkeeper:ratelimit:reviews", limit, time.Minute)
		if err != nil {
			return nil, err
		}
		s.reviewLimiter = limiter
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth + profile
	s.mux.Handle("/auth/verify", s.authenticated(s.handleVerify))
	s.mux.Handle("/profile/getProfile", s.authenticated(s.handleGetProfile))
	s.mux.Handle("/profile/updateProfile", s.authenticated(s.handleUpdateProfile))

	// reviews: creation is authenticated, listing is public
	s.mux.Handle("/reviews", s.authenticated(s.handleCreateReview))
	s.mux.HandleFunc("/reviews/", s.handleReviewPath)

	// shelves (auth + books token)
	s.mux.Handle("/shelves", s.authenticated(s.handleShelves))
	s.mux.Handle("/shelves/move", s.authenticated(s.handleShelfMove))
	s.mux.Handle("/shelves/remove", s.authenticated(s.handleShelfRemove))

	// catalog (public)
	s.mux.HandleFunc("/books/search", s.handleBookSearch)
	s.mux.HandleFunc("/books/genre/", s.handleBookGenre)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, usertoken.Identity)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, id)
	})
}

func (s *Server) authorize(r *http.Request) (usertoken.Identity, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "token.verify", "fail", "reason", "missing_token")
		return usertoken.Identity{}, false
	}
	id, err := s.tokenVerifier.Verify(token)
	if err != nil {
		s.audit(r, "token.verify", "fail", "reason", "invalid_signature_or_claims")
		return usertoken.Identity{}, false
	}
	s.audit(r, "token.verify", "success", "uid", id.UID)
	return id, true
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	u, err := s.app.VerifyUpsert(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p, err := s.app.Profile(r.Context(), id.UID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	// p is nil for a user who never wrote a profile; the client receives
	// null, not an error.
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var fields domain.ProfileFields
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.app.UpdateProfile(r.Context(), id.UID, fields)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowReviewRate(w, r, id.UID) {
		s.audit(r, "review.create", "rate_limited", "uid", id.UID)
		return
	}
	var in app.ReviewInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	review, err := s.app.CreateReview(r.Context(), id.UID, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// /reviews/{bookId} for GET, /reviews/{reviewId} for PUT and DELETE.
func (s *Server) handleReviewPath(w http.ResponseWriter, r *http.Request) {
	pathID := strings.TrimPrefix(r.URL.Path, "/reviews/")
	if pathID == "" || strings.Contains(pathID, "/") {
		notFound(w, "not found")
		return
	}

	if r.Method == http.MethodGet {
		reviews, err := s.app.ListReviews(r.Context(), pathID)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reviews)
		return
	}

	id, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch r.Method {
	case http.MethodPut:
		var patch domain.ReviewPatch
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		review, err := s.app.UpdateReview(r.Context(), id.UID, pathID, patch)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	case http.MethodDelete:
		if err := s.app.DeleteReview(r.Context(), id.UID, pathID); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

type shelvesResponse struct {
	Shelves []domain.Shelf             `json:"shelves"`
	Books   map[string][]domain.Volume `json:"books"`
}

func (s *Server) handleShelves(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	result, err := s.loader.Load(r.Context(), booksToken(r), shelf.Handlers{})
	if err != nil {
		s.writeShelfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shelvesResponse{Shelves: result.Shelves, Books: result.Books})
}

type moveRequest struct {
	BookID          string `json:"bookId"`
	TargetShelfID   string `json:"targetShelfId"`
	OriginalShelfID string `json:"originalShelfId"`
}

func (s *Server) handleShelfMove(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req moveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookID == "" || req.TargetShelfID == "" {
		writeError(w, http.StatusBadRequest, "bookId and targetShelfId are required")
		return
	}
	originalShelfID := req.OriginalShelfID
	if originalShelfID == "" {
		// Derive the book's current collection shelf so the move still
		// removes it from wherever it sits.
		loaded, err := s.loader.Load(r.Context(), booksToken(r), shelf.Handlers{})
		if err != nil {
			s.writeShelfError(w, r, err)
			return
		}
		originalShelfID = shelf.FindCurrentCollection(loaded.Books, req.BookID)
	}
	result, err := s.syncer.Move(r.Context(), booksToken(r), req.BookID, req.TargetShelfID, originalShelfID)
	if err != nil {
		if shelf.IsAlreadyOnShelf(err) {
			writeError(w, http.StatusConflict, "book already on shelf")
			return
		}
		s.writeShelfError(w, r, err)
		return
	}
	s.audit(r, "shelf.move", "success", "uid", id.UID, "book_id", req.BookID, "state", string(result.State))
	writeJSON(w, http.StatusOK, result)
}

type removeRequest struct {
	BookID  string `json:"bookId"`
	ShelfID string `json:"shelfId"`
}

func (s *Server) handleShelfRemove(w http.ResponseWriter, r *http.Request, id usertoken.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req removeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BookID == "" || req.ShelfID == "" {
		writeError(w, http.StatusBadRequest, "bookId and shelfId are required")
		return
	}
	if err := s.syncer.Remove(r.Context(), booksToken(r), req.BookID, req.ShelfID); err != nil {
		s.writeShelfError(w, r, err)
		return
	}
	s.audit(r, "shelf.remove", "success", "uid", id.UID, "book_id", req.BookID, "shelf_id", req.ShelfID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleBookSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	volumes, err := s.books.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, volumes)
}

func (s *Server) handleBookGenre(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	genre := strings.TrimPrefix(r.URL.Path, "/books/genre/")
	if genre == "" || strings.Contains(genre, "/") {
		notFound(w, "not found")
		return
	}
	volumes, err := s.books.Genre(r.Context(), genre)
	if err != nil {
		if errors.Is(err, books.ErrUnknownGenre) {
			notFound(w, "unknown genre")
			return
		}
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, volumes)
}

// error mapping

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed",
			"path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeShelfError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shelf.ErrSessionExpired) {
		s.audit(r, "shelf.session", "fail", "reason", "session_expired")
		writeError(w, http.StatusUnauthorized, "books session expired")
		return
	}
	util.LoggerFromContext(r.Context()).Error("shelf request failed",
		"path", r.URL.Path, "err", err)
	writeError(w, http.StatusBadGateway, "shelf service unavailable")
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	util.LoggerFromContext(r.Context()).Error("catalog request failed",
		"path", r.URL.Path, "err", err)
	writeError(w, http.StatusBadGateway, "catalog unavailable")
}

func (s *Server) allowReviewRate(w http.ResponseWriter, r *http.Request, uid string) bool {
	if s.reviewLimiter == nil {
		return true
	}
	if s.reviewLimiter.Allow(uid) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many reviews, slow down")
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

// helpers

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func booksToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(BooksTokenHeader))
}

func clientIP(r *http.Request) string {
	if xfwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}
