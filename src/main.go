package main

import (
	"CafeAPI/src/config"
	"CafeAPI/src/db"
	"CafeAPI/src/handlers"
	"CafeAPI/src/logging"
	"CafeAPI/src/search"
	"CafeAPI/src/token"
	"CafeAPI/src/types"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	hashKey := flag.String("hash-key", "", "print the bcrypt hash of the given api key and exit")
	flag.Parse()

	if *hashKey != "" {
		hash, err := token.HashKey(*hashKey)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to hash api key")
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err = run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	store, err := db.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database ready")

	if cfg.Database.SeedFile != "" {
		if _, err = store.LoadData(ctx, cfg.Database.SeedFile); err != nil {
			return err
		}
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var cafes types.DataStore = store
	if cfg.Elastic.Enabled {
		cafes = openIndex(ctx, cfg, store)
	}

	tmpl, err := handlers.LoadTemplate(cfg.Server.TemplatePath)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	h := handlers.NewHandler(cafes, tmpl, cfg.Form.StrictBooleans)
	router := handlers.NewRouter(h, token.NewKeyChecker(cfg.Security.APIKey, cfg.Security.APIKeyHash), handlers.RouterOptions{
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
		CORSOrigins:     cfg.Security.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Bool("search_index", cfg.Elastic.Enabled).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errCh:
		return err
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openIndex wraps store with the search index. An unreachable cluster leaves
// the store serving lookups; a failed first build is retried in the background.
func openIndex(ctx context.Context, cfg *config.Config, store *db.SQLiteStore) types.DataStore {
	index, err := search.NewElasticIndex(cfg.Elastic.URL, cfg.Elastic.Index)
	if err != nil {
		logging.Warn().Err(err).Str("url", cfg.Elastic.URL).Msg("Search index unavailable, serving lookups from the database")
		return store
	}
	go func() {
		<-ctx.Done()
		index.Stop()
	}()

	indexed := search.NewIndexedStore(store, index)
	if err = indexed.Sync(ctx); err != nil {
		logging.Warn().Err(err).Msg("Search index build failed, retrying in background")
	}
	go indexed.Run(ctx, cfg.Elastic.ResyncInterval)
	return indexed
}
