package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Inference es la capacidad de los modelos congelados (kmeans / xgboost).
// Cualquier error se trata como ErrInferenceUnavailable.
type Inference interface {
	// PredictClusters clasifica cada fila (ClusterFeatureNames) en un cluster.
	PredictClusters(ctx context.Context, features [][]float64) ([]int, error)
	// PredictGenreCluster clasifica el vector de preferencias de género.
	PredictGenreCluster(ctx context.Context, prefs []float64) (int, error)
	// PredictLikeProbability devuelve P(like) en [0,1] (ClassifierFeatureNames).
	PredictLikeProbability(ctx context.Context, features []float64) (float64, error)
	// PredictRating devuelve el rating esperado (ClassifierFeatureNames).
	PredictRating(ctx context.Context, features []float64) (float64, error)
}

type Config struct {
	Seed             uint64
	PeerK            int
	MinGlobalRatings int
	BlendPoolSize    int
	// afinidad precalculada por cluster de géneros; ausente = 0
	ClusterAffinity map[int]float64
}

func DefaultConfig() Config {
	return Config{
		Seed:             42,
		PeerK:            DefaultPeerK,
		MinGlobalRatings: DefaultMinGlobalRatings,
		BlendPoolSize:    DefaultBlendPoolSize,
		ClusterAffinity:  map[int]float64{},
	}
}

// Engine no guarda estado entre requests; es seguro usarlo en paralelo.
type Engine struct {
	inf Inference
	cfg Config
	log zerolog.Logger

	onMalformed func(fields map[string]int)
}

func NewEngine(inf Inference, cfg Config, log zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.PeerK <= 0 {
		cfg.PeerK = def.PeerK
	}
	if cfg.MinGlobalRatings <= 0 {
		cfg.MinGlobalRatings = def.MinGlobalRatings
	}
	if cfg.BlendPoolSize <= 0 {
		cfg.BlendPoolSize = def.BlendPoolSize
	}
	if cfg.ClusterAffinity == nil {
		cfg.ClusterAffinity = def.ClusterAffinity
	}
	return &Engine{inf: inf, cfg: cfg, log: log}
}

type Mode string

const (
	ModeTiered  Mode = "tiered"
	ModeProfile Mode = "profile"
)

// Item es una película recomendada.
type Item struct {
	MovieID int      `json:"movieId"`
	Title   string   `json:"title"`
	Genres  []string `json:"genres"`
	Score   float64  `json:"score"`
}

type Result struct {
	UserID  int    `json:"userId"`
	Mode    Mode   `json:"mode"`
	Tier    Tier   `json:"-"`
	Cluster int    `json:"cluster"` // -1 si no se calculó
	Peers   []Peer `json:"peers,omitempty"`
	Items   []Item `json:"items"`
}

// OnMalformedFeature registra un callback (p.ej. métricas) que recibe los
// campos reemplazados por default en cada request. Llamar antes de servir.
func (e *Engine) OnMalformedFeature(fn func(fields map[string]int)) {
	e.onMalformed = fn
}

// Recommend elige el tier según los datos del usuario y devuelve hasta n
// películas no valoradas.
func (e *Engine) Recommend(ctx context.Context, snap *Snapshot, userID, n int) (*Result, error) {
	idx := newIndex(snap)
	if !idx.knownUser(userID) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	rated := idx.ratedSet(userID)

	res := &Result{UserID: userID, Mode: ModeTiered, Cluster: -1}
	suff := DataSufficiency{
		TotalRatings: idx.totalRatings,
		UserRatings:  len(rated),
	}

	var assignment ClusterAssignment
	if suff.TotalRatings > 0 {
		var err error
		assignment, err = e.assignCluster(ctx, idx, userID)
		if err != nil {
			return nil, err
		}
		res.Cluster = assignment.Cluster
		for _, uid := range assignment.Members {
			suff.ClusterRatings += idx.history[uid].len()
		}
	}

	// solo se calcula similitud cuando el tier colaborativo es posible
	if suff.UserRatings >= SparseUserThreshold && suff.ClusterRatings > 0 {
		res.Peers = SimilarPeers(userID, rated, assignment.Members, idx.ratingsByUser(), e.cfg.PeerK)
		suff.QualifyingPeers = len(res.Peers)
	}

	res.Tier = SelectTier(suff)

	var scored []Scored
	switch res.Tier {
	case TierColdSystem:
		scored = scoreColdSystem(idx, rated, seededRand(e.cfg.Seed, userID, streamExplore))
	case TierGlobalPopularity:
		scored = scoreGlobalPopularity(idx, rated, e.cfg.MinGlobalRatings)
	case TierClusterPopularity, TierNoPeers:
		scored = scoreClusterPopularity(idx, rated, assignment.Members)
	case TierCollaborative:
		scored = scoreCollaborative(idx, rated, res.Peers)
	}

	top := Rank(scored, rated, n, seededRand(e.cfg.Seed, userID, streamJitter))
	res.Items = idx.items(top)

	e.log.Debug().
		Int("user", userID).
		Str("tier", res.Tier.String()).
		Int("cluster", res.Cluster).
		Int("user_ratings", suff.UserRatings).
		Int("cluster_ratings", suff.ClusterRatings).
		Int("peers", len(res.Peers)).
		Int("candidates", len(scored)).
		Int("items", len(res.Items)).
		Msg("recomendación calculada")

	return res, nil
}

// AssignCluster devuelve solo el cluster del usuario.
func (e *Engine) AssignCluster(ctx context.Context, snap *Snapshot, userID int) (ClusterAssignment, error) {
	idx := newIndex(snap)
	if !idx.knownUser(userID) {
		return ClusterAssignment{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return e.assignCluster(ctx, idx, userID)
}

func (idx *index) items(top []Scored) []Item {
	out := make([]Item, 0, len(top))
	for _, s := range top {
		m := idx.movieByID[s.MovieID]
		if m == nil {
			continue
		}
		out = append(out, Item{MovieID: m.MovieID, Title: m.Title, Genres: m.Genres, Score: s.Score})
	}
	return out
}

// logMalformed registra una sola vez por request cada campo reemplazado
// por su default.
func (e *Engine) logMalformed(userID int, fields map[string]int) {
	if len(fields) == 0 {
		return
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	for _, f := range names {
		e.log.Warn().
			Str("event", "malformed_feature").
			Int("user", userID).
			Str("field", f).
			Int("occurrences", fields[f]).
			Msg("feature reemplazada por su valor por defecto")
	}
	if e.onMalformed != nil {
		e.onMalformed(fields)
	}
}
