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

	"github.com/google/uuid"

	"storyloom-backend/internal/config"
	"storyloom-backend/internal/database"
	"storyloom-backend/internal/handlers"
	"storyloom-backend/internal/middleware"
	"storyloom-backend/internal/narration"
	"storyloom-backend/internal/repository"
	"storyloom-backend/internal/router"
	"storyloom-backend/internal/session"
	"storyloom-backend/internal/upstream"
	"storyloom-backend/internal/websocket"
	"storyloom-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting StoryLoom Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Initialize Upstream Clients ────
	upstreamTimeout := time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second
	generationClient, err := upstream.NewGenerationClient(cfg.GenerationAPIURL, upstreamTimeout)
	if err != nil {
		log.Fatalf("✗ Generation client initialization failed: %v", err)
	}
	accountClient, err := upstream.NewAccountClient(cfg.AccountAPIURL, upstreamTimeout)
	if err != nil {
		log.Fatalf("✗ Account client initialization failed: %v", err)
	}
	libraryClient, err := upstream.NewLibraryClient(cfg.LibraryAPIURL, upstreamTimeout)
	if err != nil {
		log.Fatalf("✗ Library client initialization failed: %v", err)
	}
	log.Println("✓ Upstream clients initialized")

	// ──── Initialize Repositories ────
	jobRepo := repository.NewJobRepo(pool)

	// ──── Initialize Session Manager & WebSocket Hub ────
	// The hub and the manager reference each other: the hub hands inbound
	// messages to the manager, the manager's sessions narrate through the
	// hub. The manager comes up first with a factory closing over the hub
	// variable.
	var wsHub *websocket.Hub
	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	sessions := session.NewManager(sessionTTL, func(id uuid.UUID) narration.Engine {
		return websocket.NewNarrationRelay(wsHub, id)
	})
	wsHub = websocket.NewHub(redisClients.PubSub, sessions.HandleClientMessage)
	log.Println("✓ WebSocket hub started")

	managerCtx, managerCancel := context.WithCancel(context.Background())
	go sessions.Start(managerCtx)

	// ──── Initialize Handlers ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	// A rejected library/stats request sends the session to the login view.
	jwtAuth.OnUnauthorized = func(r *http.Request) {
		if id, ok := middleware.SessionIDFromRequest(r); ok {
			if sess, found := sessions.Get(id); found {
				sess.SetView(session.ViewLogin)
			}
		}
	}
	sessionHandler := handlers.NewSessionHandler(sessions)
	metaHandler := handlers.NewMetaHandler(generationClient, redisClients.Queue)
	storyHandler := handlers.NewStoryHandler(sessions, generationClient, metaHandler, jobRepo, redisClients.Queue, cfg.TranslateConcurrency)
	quizHandler := handlers.NewQuizHandler(sessions)
	narrationHandler := handlers.NewNarrationHandler(sessions)
	authHandler := handlers.NewAuthHandler(sessions, accountClient, jwtAuth)
	libraryHandler := handlers.NewLibraryHandler(sessions, libraryClient)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		sessions,
		generationClient,
		libraryClient,
		jobRepo,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		metaHandler,
		storyHandler,
		quizHandler,
		narrationHandler,
		authHandler,
		libraryHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Translation answers synchronously and fans out many upstream
		// calls, so the write timeout must outlast the upstream timeout.
		WriteTimeout: upstreamTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		managerCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StoryLoom Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
