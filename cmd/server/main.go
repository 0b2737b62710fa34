package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"bookkeeper/internal/app"
	"bookkeeper/internal/books"
	"bookkeeper/internal/config"
	"bookkeeper/internal/server"
	"bookkeeper/internal/shelf"
	"bookkeeper/internal/store"
	"bookkeeper/internal/usertoken"
	"bookkeeper/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cacheTTL, err := config.ParseCacheTTL(cfg.CacheTTL)
	if err != nil {
		log.Fatalf("failed to parse cache TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var st store.Store
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init store: %v", err)
		}
		st = gormStore
	} else {
		slog.Warn("no databaseURL configured, using in-memory store")
		st = store.NewMemoryStore()
	}

	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  cfg.GoogleJWKSURL,
		Issuer:   "https://securetoken.google.com/" + cfg.GoogleProjectID,
		Audience: cfg.GoogleProjectID,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	var cache *books.Cache
	if cfg.RedisAddr != "" {
		cache = books.NewCache(cfg.RedisAddr, cfg.RedisPassword, cacheTTL)
	} else {
		slog.Warn("no redisAddr configured, catalog caching disabled")
	}

	shelfClient := shelf.NewClient(cfg.LibraryAPIBaseURL)
	httpServer, err := server.New(server.Config{
		App:                      app.New(st),
		TokenVerifier:            verifier,
		Loader:                   shelf.NewLoader(shelfClient),
		Syncer:                   shelf.NewSyncer(shelfClient),
		Books:                    books.NewService(books.NewClient(cfg.BooksAPIBaseURL, cfg.BooksAPIKey), cache),
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		ReviewRateLimitPerMinute: cfg.ReviewRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
