// Package internal assembles the application: storage, verifiers, the
// Google client, and the HTTP server, with lifecycle management on top.
package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/firegate/firegate/internal/broker"
	"github.com/firegate/firegate/internal/config"
	"github.com/firegate/firegate/internal/googleclient"
	"github.com/firegate/firegate/internal/log"
	"github.com/firegate/firegate/internal/server"
	"github.com/firegate/firegate/internal/session"
	"github.com/firegate/firegate/internal/storage"
	"github.com/firegate/firegate/internal/verifier"
)

// Firegate is the assembled application
type Firegate struct {
	config     config.Config
	httpServer *server.HTTPServer
	storage    storage.UserStore
}

// NewFiregate wires the application from its configuration.
func NewFiregate(ctx context.Context, cfg config.Config, version string) (*Firegate, error) {
	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up storage: %w", err)
	}

	idTokens := verifier.NewGoogleVerifier(cfg.ClientID)
	sessions := broker.NewVerifier(cfg.ProjectID)
	client := googleclient.New(cfg, store, idTokens)
	codec := session.NewCodec(cfg.CookieName, []byte(cfg.SessionSigningKey), cfg.CookieMaxAge)

	handler := server.NewRouter(cfg, version, client, codec, sessions, idTokens)

	return &Firegate{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
		storage:    store,
	}, nil
}

// Run starts the HTTP server and blocks until a shutdown signal or a server
// error, then shuts down gracefully.
func (f *Firegate) Run() error {
	log.LogInfoWithFields("firegate", "Starting application", map[string]any{
		"addr":    f.config.Addr,
		"storage": string(f.config.Storage),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return f.httpServer.Start()
	})

	g.Go(func() error {
		select {
		case sig := <-sigChan:
			log.LogInfoWithFields("firegate", "Received shutdown signal", map[string]any{
				"signal": sig.String(),
			})
		case <-ctx.Done():
			// server failed, Wait will surface its error
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return f.httpServer.Stop(shutdownCtx)
	})

	err := g.Wait()

	if closeErr := f.storage.Close(); closeErr != nil {
		log.LogErrorWithFields("firegate", "Storage shutdown error", map[string]any{
			"error": closeErr.Error(),
		})
	}

	if err != nil {
		return err
	}
	log.LogInfoWithFields("firegate", "Application shutdown complete", nil)
	return nil
}

// setupStorage creates the user store selected by the configuration
func setupStorage(ctx context.Context, cfg config.Config) (storage.UserStore, error) {
	switch cfg.Storage {
	case config.StorageFirestore:
		log.LogInfoWithFields("firegate", "Using Firestore storage", map[string]any{
			"project":    cfg.ProjectID,
			"collection": cfg.FirestoreCollection,
		})
		return storage.NewFirestoreStore(ctx, cfg.ProjectID, cfg.FirestoreCollection)
	case config.StorageMemory:
		log.LogInfoWithFields("firegate", "Using in-memory storage, tokens are lost on restart", nil)
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage kind: %s", cfg.Storage)
	}
}
