package service

import (
	"context"
	"fmt"

	"nodosml-recsys/internal/cache"
	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/recommend"
)

// RatingStore es la parte de repository.RatingRepository que usa el servicio.
type RatingStore interface {
	UpsertRating(ctx context.Context, userID, movieID int, rating float64) (int64, error)
	StatsForMovie(ctx context.Context, movieID int) (*models.RatingStats, error)
	GetOne(ctx context.Context, userID, movieID int) (*models.RatingDoc, error)
	GetByUser(ctx context.Context, userID, limit, offset int) ([]models.RatingDoc, error)
}

// MovieStatsStore: lookup de la película y escritura de ratingStats.
type MovieStatsStore interface {
	GetByID(ctx context.Context, movieID int) (*models.MovieDoc, error)
	UpdateStats(ctx context.Context, movieID int, stats *models.RatingStats) error
}

type RatingService struct {
	ratings RatingStore
	movies  MovieStatsStore

	// invalidate borra keys por prefijo; cache.DeletePrefix salvo en tests
	invalidate func(ctx context.Context, prefix string) (int, error)
}

func NewRatingService(r RatingStore, m MovieStatsStore) *RatingService {
	return &RatingService{
		ratings:    r,
		movies:     m,
		invalidate: cache.DeletePrefix,
	}
}

// AddOrUpdate guarda el rating, recalcula la copia de ratingStats de la
// película agregando sobre la colección y tira la cache de recomendaciones
// del usuario.
func (s *RatingService) AddOrUpdate(ctx context.Context, userID, movieID int, rating float64) (*models.RatingDoc, error) {
	// 1) La película tiene que existir
	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", movieID, recommend.ErrNotFound)
	}

	// 2) Upsert del rating (guarda timestamp como epoch)
	ts, err := s.ratings.UpsertRating(ctx, userID, movieID, rating)
	if err != nil {
		return nil, err
	}

	// 3) Stats desnormalizadas (no rompemos la respuesta si falla)
	stats, err := s.ratings.StatsForMovie(ctx, movieID)
	if err == nil {
		err = s.movies.UpdateStats(ctx, movieID, stats)
	}
	if err != nil {
		logging.Error().Err(err).Int("movie", movieID).Msg("error actualizando ratingStats")
	}

	// 4) Las recomendaciones cacheadas del usuario ya no son válidas
	if n, err := s.invalidate(ctx, userCachePrefix(userID)); err != nil {
		logging.Error().Err(err).Int("user", userID).Msg("error invalidando cache de recomendaciones")
	} else if n > 0 {
		logging.Debug().Int("user", userID).Int("keys", n).Msg("cache de recomendaciones invalidada")
	}

	return &models.RatingDoc{UserID: userID, MovieID: movieID, Rating: rating, Timestamp: ts}, nil
}

// Get devuelve el rating del usuario para una película.
func (s *RatingService) Get(ctx context.Context, userID, movieID int) (*models.RatingDoc, error) {
	rd, err := s.ratings.GetOne(ctx, userID, movieID)
	if err != nil {
		return nil, err
	}
	if rd == nil {
		return nil, fmt.Errorf("rating (%d, %d): %w", userID, movieID, recommend.ErrNotFound)
	}
	return rd, nil
}

func (s *RatingService) GetByUser(ctx context.Context, userID, limit, offset int) ([]models.RatingDoc, error) {
	return s.ratings.GetByUser(ctx, userID, limit, offset)
}
