package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fabian-grajko/chat-app/internal/moderation"
	"github.com/fabian-grajko/chat-app/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup executes before exit.
func run() error {
	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return err
	}
	server.SetConfig(cfg)

	filter, err := moderation.NewModerator(cfg.BannedWords)
	if err != nil {
		return fmt.Errorf("building profanity filter: %w", err)
	}

	chat := server.NewChatServer(filter)
	chat.Start()

	httpServer := server.CreateServer(cfg.Port, chat.SetupRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		log.Printf("HTTP shutdown finished with error: %v", err)
	}
	if err := chat.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Printf("Hub shutdown finished with error: %v", err)
	}
	return nil
}
