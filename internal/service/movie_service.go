// internal/service/movie_service.go
package service

import (
	"context"
	"fmt"

	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/recommend"
	"nodosml-recsys/internal/repository"
)

type MovieService struct {
	movies *repository.MovieRepository
}

func NewMovieService(m *repository.MovieRepository) *MovieService {
	return &MovieService{movies: m}
}

func (s *MovieService) GetMovie(ctx context.Context, id int) (*models.MovieDoc, error) {
	m, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("movie %d: %w", id, recommend.ErrNotFound)
	}
	return m, nil
}

func (s *MovieService) Search(
	ctx context.Context,
	q, genre string,
	yearFrom, yearTo, limit, offset int,
) ([]models.MovieDoc, error) {
	if genre != "" {
		// el catálogo guarda las etiquetas del vocabulario
		if n := recommend.NormalizeGenre(genre); n != "" {
			genre = n
		}
	}
	return s.movies.Search(ctx, q, genre, yearFrom, yearTo, limit, offset)
}

func (s *MovieService) Top(ctx context.Context, metric string, limit int) ([]models.MovieDoc, error) {
	return s.movies.Top(ctx, metric, limit)
}
