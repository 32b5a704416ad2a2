package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flavornet/cache"
	"flavornet/config"
	"flavornet/controller"
	"flavornet/database"
	"flavornet/logging"
	"flavornet/middlewares"
	"flavornet/recommend"
	"flavornet/route"
	"flavornet/schema"
	"flavornet/search"
	"flavornet/storage"
	"flavornet/store"
	"flavornet/taxonomy"
	"flavornet/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.With("main")

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Disconnect(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	if err := schema.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to create indexes")
	}

	users := store.NewUserStore(db)
	recipes := store.NewRecipeStore(db)

	var c cache.Cache = cache.Noop{}
	if cfg.Cache.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caching disabled")
		} else {
			defer r.Close()
			c = r
		}
	}

	var vectors recommend.VectorSearcher
	if cfg.VectorEnabled() {
		vectors = search.NewClient(cfg.Vector)
		log.Info().Str("collection", cfg.Vector.Collection).Msg("vector search enabled")
	}

	var images controller.ImageStore
	if cfg.StorageEnabled() {
		s3, err := storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to init S3 client")
		}
		images = s3
	}

	h := &controller.Controller{
		Users:        users,
		Recipes:      recipes,
		Comments:     store.NewCommentStore(db),
		Recommend:    recommend.New(users, recipes, vectors),
		Images:       images,
		Cache:        c,
		Tokens:       utils.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Tagger:       taxonomy.NewTagger(),
		Ping:         database.Ping,
		Timeout:      cfg.Server.RequestTimeout,
		SecureCookie: gin.Mode() == gin.ReleaseMode,
	}

	var limiter *middlewares.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = middlewares.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		go limiter.Run(ctx.Done())
	}

	router := route.New(h, route.Options{CORSOrigins: cfg.Server.CORSOrigins, RateLimiter: limiter})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
