package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/BorisDmv/multiblog-api/internal/auth"
	"github.com/BorisDmv/multiblog-api/internal/blog"
	"github.com/BorisDmv/multiblog-api/internal/config"
	"github.com/BorisDmv/multiblog-api/internal/db"
	"github.com/BorisDmv/multiblog-api/internal/handlers"
	"github.com/BorisDmv/multiblog-api/internal/imagehost"
	appmiddleware "github.com/BorisDmv/multiblog-api/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("configuration loaded: %v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer store.Close()

	var uploader handlers.ImageUploader
	if cfg.Images.UploadURL != "" {
		uploader = imagehost.NewClient(cfg.Images.UploadURL, cfg.Images.APIKey)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(ctx, cfg, store, uploader),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// setupRouter wires every route. Rate limiter janitors run until ctx ends.
func setupRouter(ctx context.Context, cfg *config.Config, store db.Store, uploader handlers.ImageUploader) http.Handler {
	issuer := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	svc := blog.NewService(store, issuer, cfg.Auth.BcryptCost)

	authHandler := handlers.NewAuthHandler(svc)
	postsHandler := handlers.NewPostsHandler(svc)
	imagesHandler := handlers.NewImagesHandler(uploader, cfg.Images.MaxUploadBytes)

	authLimiter := appmiddleware.NewRateLimiter(cfg.Limits.AuthPerMinute, time.Minute)
	publicLimiter := appmiddleware.NewRateLimiter(cfg.Limits.PublicPerMinute, time.Minute)
	go authLimiter.Run(ctx)
	go publicLimiter.Run(ctx)

	r := chi.NewRouter()
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	r.Get("/health", handlers.Health(store))

	api := chi.NewRouter()
	api.NotFound(handlers.NotFound)
	api.MethodNotAllowed(handlers.MethodNotAllowed)

	api.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Limit)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	api.Group(func(r chi.Router) {
		r.Use(publicLimiter.Limit)
		r.Get("/posts", postsHandler.List)
		r.Get("/posts/{id}", postsHandler.Get)
	})

	api.Group(func(r chi.Router) {
		r.Use(appmiddleware.Authenticate(issuer))
		r.Post("/posts", postsHandler.Create)
		r.Put("/posts/{id}", postsHandler.Update)
		r.Delete("/posts/{id}", postsHandler.Delete)
		r.Post("/upload-image", imagesHandler.Upload)
	})

	if cfg.APIPrefix == "" {
		r.Mount("/", api)
	} else {
		r.Mount(cfg.APIPrefix, api)
	}
	return r
}
