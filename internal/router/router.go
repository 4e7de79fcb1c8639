package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"storyloom-backend/internal/handlers"
	"storyloom-backend/internal/middleware"
	"storyloom-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	metaHandler *handlers.MetaHandler,
	storyHandler *handlers.StoryHandler,
	quizHandler *handlers.QuizHandler,
	narrationHandler *handlers.NarrationHandler,
	authHandler *handlers.AuthHandler,
	libraryHandler *handlers.LibraryHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP); generation gets its own.
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	generateLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.EnsureSession)

		// ──── Meta (public, cached) ────
		r.Get("/themes", metaHandler.Themes)
		r.Get("/age-groups", metaHandler.AgeGroups)
		r.Get("/languages", metaHandler.Languages)

		// ──── Session snapshot & navigation ────
		r.Get("/session", sessionHandler.Snapshot)
		r.Post("/session/view", sessionHandler.SetView)
		r.Post("/session/new-story", sessionHandler.NewStory)

		// ──── Story generation & translation ────
		r.Route("/stories", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(generateLimiter.Middleware)
				r.Post("/generate", storyHandler.Generate)
				r.Post("/flashcards", storyHandler.Flashcards)
			})
			r.Post("/translate", storyHandler.Translate)
		})

		// ──── Flashcard viewer ────
		r.Route("/flashcards", func(r chi.Router) {
			r.Post("/flip", storyHandler.FlipCard)
			r.Post("/next", storyHandler.NextCard)
			r.Post("/prev", storyHandler.PrevCard)
		})

		// ──── Quiz attempt ────
		r.Route("/quiz", func(r chi.Router) {
			r.Post("/start", quizHandler.Start)
			r.Post("/select", quizHandler.Select)
			r.Post("/submit", quizHandler.Submit)
			r.Post("/next", quizHandler.Next)
			r.Post("/retry", quizHandler.Retry)
		})

		// ──── Narration ────
		r.Route("/narration", func(r chi.Router) {
			r.Post("/speak", narrationHandler.Speak)
			r.Post("/stop", narrationHandler.Stop)
		})

		// ──── Auth proxy ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// ──── Library ────
		r.Route("/library", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", libraryHandler.List)
			r.Post("/save", libraryHandler.Save)
			r.Post("/{id}/load", libraryHandler.Load)
			r.Delete("/current", libraryHandler.DeleteCurrent)
			r.Put("/current", libraryHandler.UpdateCurrent)
			r.Delete("/{id}", libraryHandler.Delete)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", libraryHandler.Stats)
		})

		// ──── Jobs ────
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{id}", jobHandler.Get)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
