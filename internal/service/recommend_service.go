package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nodosml-recsys/internal/cache"
	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/metrics"
	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/recommend"
)

// SnapshotLoader entrega una vista consistente de users/movies/ratings.
type SnapshotLoader interface {
	Load(ctx context.Context) (*recommend.Snapshot, error)
}

// HistoryStore guarda las recomendaciones servidas (solo informativo).
type HistoryStore interface {
	Insert(ctx context.Context, rec *models.Recommendation) error
	FindByUser(ctx context.Context, userID int, limit int64) ([]models.Recommendation, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type RecommendOptions struct {
	DefaultN        int
	MaxN            int // por seguridad, no deja pedir 1000 ítems
	CacheTTLSeconds int
}

type RecommendService struct {
	snaps   SnapshotLoader
	history HistoryStore
	engine  *recommend.Engine
	opts    RecommendOptions
}

func NewRecommendService(
	snaps SnapshotLoader,
	history HistoryStore,
	engine *recommend.Engine,
	opts RecommendOptions,
) *RecommendService {
	if opts.DefaultN <= 0 {
		opts.DefaultN = 10
	}
	if opts.MaxN < opts.DefaultN {
		opts.MaxN = opts.DefaultN
	}
	return &RecommendService{
		snaps:   snaps,
		history: history,
		engine:  engine,
		opts:    opts,
	}
}

// ====== Petición de recomendaciones (solo parámetros que sí cambian en runtime) ======

type RecRequest struct {
	UserID  int
	N       int
	Mode    recommend.Mode
	Refresh bool

	// Progress, si no es nil, recibe cada etapa del cálculo (websocket).
	Progress func(stage string, detail map[string]any)
}

func userCachePrefix(userID int) string {
	return fmt.Sprintf("rec:user:%d:", userID)
}

func cacheKey(req RecRequest) string {
	// Cachea por usuario + n + modo (refresh solo decide si usar cache)
	return fmt.Sprintf("%sn:%d:mode:%s", userCachePrefix(req.UserID), req.N, req.Mode)
}

func (s *RecommendService) normalize(req RecRequest) RecRequest {
	if req.N <= 0 {
		req.N = s.opts.DefaultN
	} else if req.N > s.opts.MaxN {
		req.N = s.opts.MaxN
	}
	if req.Mode == "" {
		req.Mode = recommend.ModeTiered
	}
	return req
}

func (req RecRequest) progress(stage string, detail map[string]any) {
	if req.Progress != nil {
		req.Progress(stage, detail)
	}
}

// Recommend sirve recomendaciones tiered o por perfil para un usuario.
func (s *RecommendService) Recommend(ctx context.Context, req RecRequest) (*models.RecResponse, error) {
	req = s.normalize(req)
	if req.Mode != recommend.ModeTiered && req.Mode != recommend.ModeProfile {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, req.Mode)
	}
	start := time.Now()

	// 1) Cache Redis (solo si refresh = false)
	if !req.Refresh {
		var cached models.RecResponse
		ok, err := cache.GetJSON(ctx, cacheKey(req), &cached)
		if err != nil {
			logging.Warn().Err(err).Int("user", req.UserID).Msg("error leyendo cache de recomendaciones")
		}
		if ok {
			req.progress("cache_hit", nil)
			return &cached, nil
		}
	}

	// 2) Snapshot consistente
	snap, err := s.snaps.Load(ctx)
	if err != nil {
		return nil, err
	}
	req.progress("snapshot_loaded", map[string]any{
		"users":   len(snap.Users),
		"movies":  len(snap.Movies),
		"ratings": len(snap.Ratings),
	})

	// 3) Scoring
	var res *recommend.Result
	switch req.Mode {
	case recommend.ModeProfile:
		res, err = s.engine.RecommendProfile(ctx, snap, req.UserID, req.N)
	default:
		res, err = s.engine.Recommend(ctx, snap, req.UserID, req.N)
	}
	if err != nil {
		return nil, err
	}

	resp := toRecResponse(res)
	label := resp.Tier
	if res.Mode == recommend.ModeProfile {
		label = string(recommend.ModeProfile)
	}
	metrics.RecommendationsTotal.WithLabelValues(label).Inc()
	metrics.RecommendDuration.WithLabelValues(string(res.Mode)).Observe(time.Since(start).Seconds())
	req.progress("scored", map[string]any{
		"tier":    resp.Tier,
		"cluster": resp.Cluster,
		"peers":   len(resp.Peers),
	})

	// 4) Guardar historial en Mongo (no rompemos la respuesta si falla)
	if s.history != nil {
		hist := &models.Recommendation{
			ID:      uuid.NewString(),
			UserID:  req.UserID,
			Mode:    string(res.Mode),
			Tier:    resp.Tier,
			Cluster: resp.Cluster,
			Params: map[string]any{
				"n":       req.N,
				"refresh": req.Refresh,
				"peers":   len(resp.Peers),
			},
			Items:     resp.Items,
			CreatedAt: time.Now(),
		}
		if err := s.history.Insert(ctx, hist); err != nil {
			logging.Error().Err(err).Int("user", req.UserID).Msg("error guardando recomendación en Mongo")
		}
	}

	// 5) Cachear en Redis
	if err := cache.SetJSON(ctx, cacheKey(req), resp, s.opts.CacheTTLSeconds); err != nil {
		logging.Error().Err(err).Int("user", req.UserID).Msg("error cacheando recomendación en Redis")
	}

	return resp, nil
}

func toRecResponse(res *recommend.Result) *models.RecResponse {
	resp := &models.RecResponse{
		UserID:  res.UserID,
		Mode:    string(res.Mode),
		Cluster: res.Cluster,
		Items:   make([]models.RecItem, len(res.Items)),
	}
	if res.Tier != recommend.TierNone {
		resp.Tier = res.Tier.String()
	}
	for i, it := range res.Items {
		resp.Items[i] = models.RecItem{MovieID: it.MovieID, Title: it.Title, Genres: it.Genres, Score: it.Score}
	}
	for _, p := range res.Peers {
		resp.Peers = append(resp.Peers, models.PeerRef{UserID: p.UserID, Weight: p.Weight})
	}
	return resp
}

// History lista las recomendaciones servidas al usuario, más reciente primero.
func (s *RecommendService) History(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	} else if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if s.history == nil {
		return []models.Recommendation{}, nil
	}
	recs, err := s.history.FindByUser(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("historial de %d: %w", userID, err)
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	return recs, nil
}

// AssignCluster expone el cluster de comportamiento del usuario.
func (s *RecommendService) AssignCluster(ctx context.Context, userID int) (*recommend.ClusterAssignment, error) {
	snap, err := s.snaps.Load(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.engine.AssignCluster(ctx, snap, userID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// PredictRating devuelve el rating esperado de (user, movie) según el regresor.
func (s *RecommendService) PredictRating(ctx context.Context, userID, movieID int) (float64, error) {
	snap, err := s.snaps.Load(ctx)
	if err != nil {
		return 0, err
	}
	return s.engine.PredictRating(ctx, snap, userID, movieID)
}
