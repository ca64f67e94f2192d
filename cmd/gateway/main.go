package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focalai/internal/gateway/app"
)

// drainTimeout bounds how long in-flight refinements get after a signal.
const drainTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := app.New()
	if err != nil {
		log.Printf("focalai gateway: init: %v", err)
		return 1
	}

	errCh := make(chan error, 1)
	go func() { errCh <- gw.Start() }()

	code := 0
	select {
	case <-ctx.Done():
		log.Printf("focalai gateway: signal received, draining for up to %s", drainTimeout)
	case err := <-errCh:
		if err != nil {
			log.Printf("focalai gateway: serve: %v", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Printf("focalai gateway: shutdown: %v", err)
		return 1
	}
	log.Println("focalai gateway: stopped")
	return code
}
