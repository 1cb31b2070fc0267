// videosumapi/main.go
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"videosumapi/api"
	"videosumapi/config"
	"videosumapi/media"
	"videosumapi/pipeline"
	"videosumapi/provider"
	"videosumapi/task"
)

func main() {
	// 1. Load and validate configuration; refuse to serve on any problem.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("AI provider: %s, transcription method: %s", cfg.AIProvider, cfg.TranscriptionMethod)

	// 2. Initialize dependencies, leaves first.
	extractor, err := media.NewExtractor(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media extractor: %v", err)
	}

	var whisper *provider.Whisper
	if cfg.NeedsLocalWhisper() {
		whisper, err = provider.NewWhisper(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize whisper transcriber: %v", err)
		}
	}

	agent, err := provider.New(cfg, whisper)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}

	var local pipeline.Transcriber
	if whisper != nil {
		local = whisper
	}
	processor := pipeline.New(cfg, extractor, agent, local)

	// 3. Initialize task manager and inject the pipeline
	taskManager, err := task.NewManager(cfg, processor)
	if err != nil {
		log.Fatalf("Failed to initialize task manager: %v", err)
	}

	// 4. Set up router and server
	router := api.SetupRouter(taskManager, cfg)
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		Handler: router,
	}

	// 5. Start background services and HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskManager.Start(ctx)

	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
