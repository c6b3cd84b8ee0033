package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
)

const (
	DefaultBlendPoolSize = 100

	blendAffinityWeight = 0.4
	blendGenreWeight    = 0.3
	blendRatingBoost    = 0.05
	blendJitterScale    = 0.01
)

// RecommendProfile es el modo demográfico: para cada candidata pide P(like)
// al clasificador y mezcla
//
//	final = p*(1 + 0.4*affinity) + 0.3*overlap + rating_boost + jitter
//
// affinity sale de la tabla por cluster de géneros del usuario,
// overlap = |géneros preferidos ∩ géneros de la película|,
// rating_boost = 0.05*log1p(#ratings >= 4) y jitter ∈ [0, 0.01).
// Las candidatas son las BlendPoolSize películas no vistas más populares.
func (e *Engine) RecommendProfile(ctx context.Context, snap *Snapshot, userID, n int) (*Result, error) {
	idx := newIndex(snap)
	if !idx.knownUser(userID) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	rated := idx.ratedSet(userID)

	var preferred []string
	if u := idx.users[userID]; u != nil {
		preferred = u.PreferredGenres
	}
	prefs, unknown := GenreFlags(preferred)

	cluster, err := e.inf.PredictGenreCluster(ctx, prefs)
	if err != nil {
		return nil, inferenceErr("predict genre cluster", err)
	}
	affinity := e.cfg.ClusterAffinity[cluster]

	var us ratingSummary
	if h := idx.history[userID]; h != nil {
		us = summarize(h.vals)
	}
	ratingBoost := blendRatingBoost * math.Log1p(float64(us.highCount))

	malformed := make(map[string]int)
	if len(unknown) > 0 {
		malformed["preferred_genre"] += len(unknown)
	}

	pool := idx.blendPool(rated, e.cfg.BlendPoolSize)
	jrng := seededRand(e.cfg.Seed, userID, streamBlend)

	scored := make([]Scored, 0, len(pool))
	for _, mid := range pool {
		movie := idx.movieByID[mid]
		vec, bad := idx.classifierFeatures(userID, movie)
		for _, f := range bad {
			malformed[f]++
		}

		p, err := e.inf.PredictLikeProbability(ctx, vec)
		if err != nil {
			return nil, inferenceErr("predict like probability", err)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, inferenceErr("predict like probability",
				fmt.Errorf("probabilidad fuera de rango: %v", p))
		}

		overlap := float64(genreOverlap(preferred, movie.Genres))
		final := p*(1+blendAffinityWeight*affinity) +
			blendGenreWeight*overlap +
			ratingBoost +
			jrng.Float64()*blendJitterScale
		scored = append(scored, Scored{MovieID: mid, Score: final})
	}
	e.logMalformed(userID, malformed)

	top := Rank(scored, rated, n, seededRand(e.cfg.Seed, userID, streamJitter))

	e.log.Debug().
		Int("user", userID).
		Int("genre_cluster", cluster).
		Float64("affinity", affinity).
		Int("pool", len(pool)).
		Msg("recomendación por perfil calculada")

	return &Result{
		UserID:  userID,
		Mode:    ModeProfile,
		Tier:    TierNone,
		Cluster: cluster,
		Items:   idx.items(top),
	}, nil
}

// blendPool devuelve hasta size películas no vistas, ordenadas por
// popularidad global desc y movieId asc. Sin ratings en el store, las
// primeras por movieId.
func (idx *index) blendPool(rated map[int]float64, size int) []int {
	type cand struct {
		id    int
		score float64
	}
	cands := make([]cand, 0, len(idx.movies))
	for _, m := range idx.movies {
		if _, ok := rated[m.MovieID]; ok {
			continue
		}
		cands = append(cands, cand{id: m.MovieID, score: popularity(idx.movieRatings[m.MovieID])})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].id < cands[j].id
	})
	if len(cands) > size {
		cands = cands[:size]
	}
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.id
	}
	return out
}

// PredictRating devuelve el rating que el regresor espera para (user, movie).
func (e *Engine) PredictRating(ctx context.Context, snap *Snapshot, userID, movieID int) (float64, error) {
	idx := newIndex(snap)
	if !idx.knownUser(userID) {
		return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	movie := idx.movieByID[movieID]
	if movie == nil {
		return 0, fmt.Errorf("movie %d: %w", movieID, ErrNotFound)
	}

	vec, bad := idx.classifierFeatures(userID, movie)
	malformed := make(map[string]int, len(bad))
	for _, f := range bad {
		malformed[f]++
	}
	e.logMalformed(userID, malformed)

	r, err := e.inf.PredictRating(ctx, vec)
	if err != nil {
		return 0, inferenceErr("predict rating", err)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, inferenceErr("predict rating", fmt.Errorf("rating no finito: %v", r))
	}
	return r, nil
}
