package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"research-assistant-be/internal/bootstrap"
	"research-assistant-be/internal/config"
	"research-assistant-be/internal/server"
	"research-assistant-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap: %v", err)
	}
	defer container.Close()

	// 3. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App, container.Logger)
	defer func() { _ = shutdownTracer(context.Background()) }()

	// 4. Activity feed from the event bus
	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if container.ActivityConsumer != nil {
		if err := container.ActivityConsumer.Consume(consumeCtx); err != nil {
			log.Printf("Activity consumer not started: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		stopConsumer()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
