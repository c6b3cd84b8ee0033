package service

import (
	"context"
	"fmt"

	"nodosml-recsys/internal/cache"
	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/recommend"
	"nodosml-recsys/internal/repository"
)

// recCachePrefix cubre todas las entradas de recomendaciones en Redis.
const recCachePrefix = "rec:"

// AdminMaintenanceService agrupa tareas de mantenimiento sobre los datos
// derivados: la copia ratingStats de movies y la cache de recomendaciones.
type AdminMaintenanceService struct {
	ratings    *repository.RatingRepository
	movies     *repository.MovieRepository
	minRatings int
}

func NewAdminMaintenanceService(
	ratings *repository.RatingRepository,
	movies *repository.MovieRepository,
	minRatings int,
) *AdminMaintenanceService {
	if minRatings <= 0 {
		minRatings = recommend.DefaultMinGlobalRatings
	}
	return &AdminMaintenanceService{ratings: ratings, movies: movies, minRatings: minRatings}
}

// Summary cuenta películas, ratings y usuarios elegibles como peers.
func (s *AdminMaintenanceService) Summary(ctx context.Context, minRatings int) (*models.AdminDataSummary, error) {
	if minRatings <= 0 {
		minRatings = s.minRatings
	}
	totalMovies, popular, err := s.movies.CountPopular(ctx, minRatings)
	if err != nil {
		return nil, fmt.Errorf("contando películas: %w", err)
	}
	total, raters, eligible, err := s.ratings.CountSummary(ctx, recommend.SparseUserThreshold)
	if err != nil {
		return nil, fmt.Errorf("contando ratings: %w", err)
	}
	return &models.AdminDataSummary{
		TotalMovies:       totalMovies,
		PopularMovies:     popular,
		MinRatings:        minRatings,
		TotalRatings:      total,
		RatedUsers:        raters,
		PeerEligibleUsers: eligible,
	}, nil
}

// RebuildStats recalcula ratingStats de todas las películas en una sola
// agregación y lo escribe en lote. Sirve después de importar ratings por fuera
// de la API.
func (s *AdminMaintenanceService) RebuildStats(ctx context.Context) (*models.RebuildStatsResult, error) {
	stats, err := s.ratings.AllMovieStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("agregando ratings: %w", err)
	}
	modified, err := s.movies.BulkUpdateStats(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("escribiendo ratingStats: %w", err)
	}
	logging.Info().
		Int("movies", len(stats)).
		Int("modified", modified).
		Msg("ratingStats reconstruido")
	return &models.RebuildStatsResult{MoviesWithRatings: len(stats), Modified: modified}, nil
}

// FlushCache borra las recomendaciones cacheadas. userID > 0 limita el
// borrado a ese usuario.
func (s *AdminMaintenanceService) FlushCache(ctx context.Context, userID int) (*models.FlushCacheResult, error) {
	prefix := recCachePrefix
	if userID > 0 {
		prefix = userCachePrefix(userID)
	}
	n, err := cache.DeletePrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("borrando cache: %w", err)
	}
	logging.Info().Str("prefix", prefix).Int("deleted", n).Msg("cache de recomendaciones limpiada")
	return &models.FlushCacheResult{Prefix: prefix, Deleted: n}, nil
}
