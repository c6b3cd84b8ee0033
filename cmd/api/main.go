package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nodosml-recsys/internal/cache"
	"nodosml-recsys/internal/config"
	"nodosml-recsys/internal/db"
	"nodosml-recsys/internal/handler"
	"nodosml-recsys/internal/inference"
	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/metrics"
	"nodosml-recsys/internal/recommend"
	"nodosml-recsys/internal/repository"
	"nodosml-recsys/internal/service"
)

// @title NodosML Movie Recommender API
// @version 2.0
// @description Recomendador por tiers (cold start, popularidad, cluster, colaborativo) + modo perfil
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("configuración inválida")
	}

	// Mongo y Redis
	db.InitMongo(cfg)
	cache.InitRedis(cfg)

	// Model server: sin modelos no hay recomendador
	model := inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := model.Ping(pingCtx); err != nil {
		logging.Fatal().Err(err).Str("url", cfg.InferenceURL).Msg("model server no disponible")
	}
	cancelPing()

	// repos
	userRepo := repository.NewUserRepository()
	movieRepo := repository.NewMovieRepository()
	ratingRepo := repository.NewRatingRepository()
	recRepo := repository.NewRecommendationRepository()
	snapRepo := repository.NewSnapshotRepository(cfg.MongoSnapshotReads)

	// motor de recomendación
	engine := recommend.NewEngine(model, recommend.Config{
		Seed:             cfg.RecSeed,
		PeerK:            recommend.DefaultPeerK,
		MinGlobalRatings: cfg.MinGlobalRatings,
		BlendPoolSize:    cfg.BlendPoolSize,
		ClusterAffinity:  cfg.ClusterAffinity,
	}, logging.Component("recommend"))
	engine.OnMalformedFeature(func(fields map[string]int) {
		for f, n := range fields {
			metrics.MalformedFeatures.WithLabelValues(f).Add(float64(n))
		}
	})

	// services
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)
	movieSvc := service.NewMovieService(movieRepo)
	ratingSvc := service.NewRatingService(ratingRepo, movieRepo)
	recSvc := service.NewRecommendService(snapRepo, recRepo, engine, service.RecommendOptions{
		DefaultN:        cfg.DefaultN,
		MaxN:            cfg.MaxN,
		CacheTTLSeconds: cfg.CacheTTLSeconds,
	})
	maintSvc := service.NewAdminMaintenanceService(ratingRepo, movieRepo, cfg.MinGlobalRatings)

	// handlers
	authH := handler.NewAuthHandler(authSvc)
	movieH := handler.NewMovieHandler(movieSvc)
	ratingH := handler.NewRatingHandler(ratingSvc)
	recH := handler.NewRecommendHandler(recSvc)
	maintH := handler.NewAdminMaintenanceHandler(maintSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// =============
	// Rutas públicas
	// =============
	r.Get("/health", handler.Health(model))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", authH.Register)
	r.Post("/auth/login", authH.Login)

	// Películas (públicas)
	r.Get("/movies/search", movieH.Search)
	r.Get("/movies/top", movieH.Top)
	r.Get("/movies/{id}", movieH.GetMovie)

	// ===========================
	// Rutas protegidas con JWT
	// ===========================
	authMw := handler.JWTAuth(cfg.JWTSecret)

	r.Group(func(r chi.Router) {
		r.Use(authMw)

		// ---- Endpoints /me (USER normal) ----
		r.Route("/me", func(r chi.Router) {
			r.Get("/", authH.GetUser)
			r.Put("/", authH.UpdateUser)
			r.Get("/ratings", ratingH.GetRatings)
			r.Post("/ratings", ratingH.PostRating)
			r.Get("/ratings/{movieId}", ratingH.GetRating)
			r.Get("/recommendations", recH.GetRecommendations)
			r.Get("/recommendations/history", recH.GetHistory)
			r.Get("/recommendations/profile", recH.GetProfileRecommendations)
			r.Get("/cluster", recH.GetCluster)
			r.Get("/movies/{movieId}/predicted-rating", recH.GetPredictedRating)
			r.Get("/ws/recommendations", recH.GetRecommendationsWS)
		})

		// ---- Endpoints solo ADMIN ----
		r.Group(func(r chi.Router) {
			r.Use(handler.AdminOnly())

			r.Get("/users", authH.ListUsers)
			r.Put("/users/{id}/update", authH.UpdateUser)

			handler.MountAdminMaintenanceRoutes(r, maintH)

			// ratings y recomendaciones de cualquier usuario
			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", authH.GetUser)

				r.Get("/ratings", ratingH.GetRatings)
				r.Post("/ratings", ratingH.PostRating)
				r.Get("/ratings/{movieId}", ratingH.GetRating)

				r.Get("/recommendations", recH.GetRecommendations)
				r.Get("/recommendations/history", recH.GetHistory)
				r.Get("/recommendations/profile", recH.GetProfileRecommendations)
				r.Get("/cluster", recH.GetCluster)
				r.Get("/movies/{movieId}/predicted-rating", recH.GetPredictedRating)

				// WebSocket
				r.Get("/ws/recommendations", recH.GetRecommendationsWS)
			})
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.HTTPPort).Msg("HTTP escuchando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("servidor HTTP")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("error apagando HTTP")
	}
	if err := db.Close(ctx); err != nil {
		logging.Error().Err(err).Msg("error cerrando Mongo")
	}
	logging.Info().Msg("apagado limpio")
}
