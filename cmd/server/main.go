package main

import (
	"context"
	"net/http"
	"time"

	"feedbackboard-backend/internal/config"
	"feedbackboard-backend/internal/database"
	"feedbackboard-backend/internal/handlers"
	"feedbackboard-backend/internal/logging"
	"feedbackboard-backend/internal/metrics"
	"feedbackboard-backend/internal/notify"
	"feedbackboard-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env (ignore error in production — env vars set directly)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("dev")
		bootLog.Fatal().Err(err).Msg("❌ failed to load config")
	}
	log := logging.New(cfg.AppEnv)

	metrics.Register()

	// Connect the selected feedback store
	var feedbackRepo repository.FeedbackRepository
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo:
		if cfg.MongoURI == "" {
			log.Fatal().Msg("❌ MONGODB_URI is required when STORE_DRIVER=mongo")
		}
		if err := database.Connect(cfg.MongoURI, cfg.DBName); err != nil {
			log.Fatal().Err(err).Msg("❌ failed to connect to MongoDB")
		}
		log.Info().Msg("✅ connected to MongoDB")

		repo := repository.NewMongoFeedbackRepo()
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("⚠️ failed to create feedback indexes")
		}
		feedbackRepo = repo

	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			log.Fatal().Msg("❌ POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
		pool, err := database.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ failed to connect to Postgres")
		}
		log.Info().Msg("✅ connected to Postgres")

		repo := repository.NewPostgresFeedbackRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("❌ failed to ensure feedback schema")
		}
		feedbackRepo = repo

	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("❌ unknown STORE_DRIVER (want mongo or postgres)")
	}

	// Initialize notifier (log-backed mock)
	notifier := notify.NewLogNotifier(log)

	// Initialize handlers
	feedbackHandler := handlers.NewFeedbackHandler(feedbackRepo, notifier, log)

	// Setup chi router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"feedbackboard-backend"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Feedback board API (no auth — voter identity is a client-generated token)
	r.Route("/api/feedback", func(r chi.Router) {
		r.Get("/", feedbackHandler.ListFeedback)
		r.Post("/", feedbackHandler.SubmitFeedback)
		r.Post("/{id}/upvote", feedbackHandler.ToggleUpvote)
	})

	// Start server
	log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("🚀 feedback board backend starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("❌ server failed")
	}
}
