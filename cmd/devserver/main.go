package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/chorebridge/internal/database"
	"github.com/dukerupert/chorebridge/internal/logging"
	"github.com/dukerupert/chorebridge/internal/server"
)

func main() {
	port := os.Getenv("DEVSERVER_PORT")
	if port == "" {
		port = "2021"
	}

	dbPath := os.Getenv("DEVSERVER_DB_PATH")
	if dbPath == "" {
		dbPath = database.Memory
	}

	logger := logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		Secret:             []byte(os.Getenv("DEVSERVER_SECRET")),
		RestrictCompletion: os.Getenv("DEVSERVER_RESTRICT_COMPLETION") == "true",
	}
	if v := os.Getenv("DEVSERVER_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid DEVSERVER_RATE_LIMIT: %v", err)
		}
		cfg.RateLimit = n
	}

	srv := server.New(db, cfg, logger)

	empty, err := srv.NeedsSeed()
	if err != nil {
		log.Fatalf("failed to inspect database: %v", err)
	}
	if empty {
		seeded, err := srv.Seed(server.DefaultSeed())
		if err != nil {
			log.Fatalf("failed to seed database: %v", err)
		}
		for _, u := range seeded.Users {
			logger.Info("seeded user", "id", u.ID, "username", u.Username, "plan", u.Plan)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Donetick stand-in running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
