package recommend

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"nodosml-recsys/internal/models"
)

// fakeInference implementa Inference en memoria.
type fakeInference struct {
	clusterFn   func(vec []float64) int
	clusterErr  error
	shortLabels bool
	coldLabel   *int // etiqueta para la segunda llamada (vector medio)

	genreCluster int
	genreErr     error

	likeFn  func(vec []float64) float64
	likeErr error

	rating    float64
	ratingErr error

	clusterCalls [][][]float64
	likeCalls    int
}

func (f *fakeInference) PredictClusters(_ context.Context, rows [][]float64) ([]int, error) {
	f.clusterCalls = append(f.clusterCalls, rows)
	if f.clusterErr != nil {
		return nil, f.clusterErr
	}
	if f.coldLabel != nil && len(f.clusterCalls) > 1 {
		return []int{*f.coldLabel}, nil
	}
	out := make([]int, len(rows))
	for i, r := range rows {
		if f.clusterFn != nil {
			out[i] = f.clusterFn(r)
		}
	}
	if f.shortLabels && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeInference) PredictGenreCluster(_ context.Context, _ []float64) (int, error) {
	return f.genreCluster, f.genreErr
}

func (f *fakeInference) PredictLikeProbability(_ context.Context, vec []float64) (float64, error) {
	f.likeCalls++
	if f.likeErr != nil {
		return 0, f.likeErr
	}
	if f.likeFn != nil {
		return f.likeFn(vec), nil
	}
	return 0.5, nil
}

func (f *fakeInference) PredictRating(_ context.Context, _ []float64) (float64, error) {
	return f.rating, f.ratingErr
}

var errModelDown = errors.New("connection refused")

func newTestEngine(inf Inference) *Engine {
	cfg := DefaultConfig()
	cfg.Seed = 7
	return NewEngine(inf, cfg, zerolog.Nop())
}

func intPtr(v int) *int { return &v }

func user(id int) models.UserDoc {
	return models.UserDoc{
		UserID:     id,
		Age:        intPtr(28),
		Gender:     "F",
		Occupation: intPtr(4),
		Zip:        "90210",
	}
}

func movie(id int, genres ...string) models.MovieDoc {
	return models.MovieDoc{MovieID: id, Title: "movie", Year: intPtr(1999), Genres: genres}
}

func catalog(n int) []models.MovieDoc {
	out := make([]models.MovieDoc, n)
	for i := range out {
		out[i] = movie(i+1, "Drama")
	}
	return out
}

func rate(u, m int, r float64) models.RatingDoc {
	return models.RatingDoc{UserID: u, MovieID: m, Rating: r, Timestamp: 1}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
