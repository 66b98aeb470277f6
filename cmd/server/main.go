package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"

	"github.com/caldant/contentflow/internal/api"
	"github.com/caldant/contentflow/pkg/contentflow"
	"github.com/caldant/contentflow/pkg/contentflow/config"
)

func main() {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}
	logger := cfg.Logger()

	stack, err := cfg.BuildStack(nil)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}
	defer stack.Close()

	if stack.Memory != nil {
		seedDevData(stack.Memory)
		logger.Info("seeded in-memory catalogs for development")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Development fallback; Validate rejects this in production.
		secret = "contentflow-dev-secret"
		logger.Warn("JWT_SECRET not set, using development secret")
	}
	auth := jwtauth.New("HS256", []byte(secret), nil)

	handler := api.NewHandler(stack.Service, auth, logger)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "environment": "%s", "database_type": "%s"}`,
			cfg.Environment, cfg.DatabaseType)
	})
	r.Mount("/api/v1", handler.Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("contentflow server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"database_type", cfg.DatabaseType)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("server exited")
}

// seedDevData loads a starter catalog so a fresh in-memory server is usable
// immediately: two languages, a small type hierarchy, and an admin user
// (user_id 1) holding every permission.
func seedDevData(mem *config.MemoryStores) {
	mem.Languages.Add(contentflow.Language{Code: "en-US", Name: "English (US)", Mandatory: true})
	mem.Languages.Add(contentflow.Language{Code: "da-DK", Name: "Danish"})

	mem.Types.Register(&contentflow.ContentType{
		Alias:             "site",
		Name:              "Site",
		VariesByCulture:   true,
		AllowedAtRoot:     true,
		AllowedChildTypes: []string{"section", "article"},
	})
	mem.Types.Register(&contentflow.ContentType{
		Alias:             "section",
		Name:              "Section",
		VariesByCulture:   true,
		AllowedChildTypes: []string{"section", "article"},
	})
	mem.Types.Register(&contentflow.ContentType{
		Alias:           "article",
		Name:            "Article",
		VariesByCulture: true,
		Properties: []contentflow.PropertyType{
			{Alias: "title", Name: "Title", Mandatory: true},
			{Alias: "body", Name: "Body"},
		},
	})

	mem.Permissions.SetDefaults(1,
		contentflow.PermBrowse, contentflow.PermCreate, contentflow.PermUpdate,
		contentflow.PermDelete, contentflow.PermPublish, contentflow.PermUnpublish,
		contentflow.PermMove, contentflow.PermCopy, contentflow.PermSort,
		contentflow.PermSendForApproval)
}
