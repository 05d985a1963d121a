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

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"pairchat/auth"
	"pairchat/domain/event"
	"pairchat/moderation"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/runtime/workers"
	"pairchat/services"
	"pairchat/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	maskRune, err := config.CharacterRune()
	if err != nil {
		return err
	}

	// 2. Storage (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Moderation
	wordlists, err := moderation.LoadWordlists()
	if err != nil {
		return fmt.Errorf("wordlists loading failed: %w", err)
	}
	log.Info("Moderation wordlists loaded",
		"words", len(wordlists.Words), "languages", wordlists.Languages)
	moderator, err := moderation.NewModerator(wordlists.Words, maskRune)
	if err != nil {
		return fmt.Errorf("moderator build failed: %w", err)
	}

	// 4. Core wiring
	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	users := repositories.NewUserRepository(db, index, log)

	registry := runtime.NewRegistry()
	created := make(chan event.ConversationCreated, config.CreatedBufferSize)
	resolver := runtime.NewResolver(log, conversations, users, created)
	pipeline := runtime.NewPipeline(log, registry, conversations, messages,
		moderator, config.DeliveryTimeout)

	tokens := auth.NewTokens(config.AuthTokenSecret, "pairchat", config.AuthTokenDuration)
	handler := transport.NewHandler(log,
		services.NewAuthService(users, tokens),
		services.NewChatService(log, resolver, conversations, messages, users, registry),
		services.NewDirectoryService(users),
		pipeline, registry)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers under supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewNotifierWorker(log, registry, created, config.DeliveryTimeout),
		workers.NewTelemetryWorker(log, config.TelemetryInterval),
		workers.NewStoreGCWorker(log, db, config.StoreGCInterval),
	)
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    address,
		Handler: transport.NewRouter(config.Env, tokens, handler),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not finish cleanly", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
