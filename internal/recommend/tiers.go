package recommend

import (
	"math"
	"math/rand/v2"
)

// Tier es la estrategia de scoring elegida para todo el request.
type Tier int

const (
	TierNone              Tier = iota - 1
	TierColdSystem             // T0
	TierGlobalPopularity       // T1
	TierClusterPopularity      // T2
	TierCollaborative          // T3
	TierNoPeers                // T3'
)

const (
	// SparseUserThreshold: con menos ratings no se calcula colaborativo.
	SparseUserThreshold = 3
	// DefaultMinGlobalRatings: mínimo de ratings globales para entrar en T1.
	DefaultMinGlobalRatings = 5
)

func (t Tier) String() string {
	switch t {
	case TierColdSystem:
		return "cold_system"
	case TierGlobalPopularity:
		return "global_popularity"
	case TierClusterPopularity:
		return "cluster_popularity"
	case TierCollaborative:
		return "collaborative"
	case TierNoPeers:
		return "no_peers"
	default:
		return "none"
	}
}

// DataSufficiency resume los datos disponibles para elegir el tier.
// QualifyingPeers solo se mira cuando UserRatings >= SparseUserThreshold.
type DataSufficiency struct {
	TotalRatings    int
	UserRatings     int
	ClusterRatings  int
	QualifyingPeers int
}

// SelectTier es la única regla de decisión entre tiers.
func SelectTier(d DataSufficiency) Tier {
	switch {
	case d.TotalRatings == 0:
		return TierColdSystem
	case d.UserRatings == 0 || d.ClusterRatings == 0:
		return TierGlobalPopularity
	case d.UserRatings < SparseUserThreshold:
		return TierClusterPopularity
	case d.QualifyingPeers > 0:
		return TierCollaborative
	default:
		return TierNoPeers
	}
}

// Scored es el score de una película candidata antes del ranking.
type Scored struct {
	MovieID int
	Score   float64
}

// popularity = mean * log1p(count)
func popularity(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)) * math.Log1p(float64(len(vals)))
}

// scoreColdSystem: exploración pura, score uniforme en [0,1) por película
// del catálogo, en orden de movieId.
func scoreColdSystem(idx *index, rated map[int]float64, rng *rand.Rand) []Scored {
	out := make([]Scored, 0, len(idx.movies))
	for _, m := range idx.movies {
		if _, ok := rated[m.MovieID]; ok {
			continue
		}
		out = append(out, Scored{MovieID: m.MovieID, Score: rng.Float64()})
	}
	return out
}

// scoreGlobalPopularity: popularidad sobre toda la tabla de ratings, solo
// películas con al menos minCount ratings.
func scoreGlobalPopularity(idx *index, rated map[int]float64, minCount int) []Scored {
	var out []Scored
	for _, m := range idx.movies {
		if _, ok := rated[m.MovieID]; ok {
			continue
		}
		vals := idx.movieRatings[m.MovieID]
		if len(vals) < minCount || len(vals) == 0 {
			continue
		}
		out = append(out, Scored{MovieID: m.MovieID, Score: popularity(vals)})
	}
	return out
}

// scoreClusterPopularity: popularidad usando solo los ratings de los
// miembros del cluster.
func scoreClusterPopularity(idx *index, rated map[int]float64, members []int) []Scored {
	perMovie := make(map[int][]float64)
	for _, uid := range members {
		h := idx.history[uid]
		if h == nil {
			continue
		}
		for i, mid := range h.ids {
			perMovie[mid] = append(perMovie[mid], h.vals[i])
		}
	}

	var out []Scored
	for _, m := range idx.movies {
		if _, ok := rated[m.MovieID]; ok {
			continue
		}
		vals := perMovie[m.MovieID]
		if len(vals) == 0 {
			continue
		}
		out = append(out, Scored{MovieID: m.MovieID, Score: popularity(vals)})
	}
	return out
}

// scoreCollaborative: para cada película no vista,
// sum(rating_peer * w_peer) / sum(w_peer) sobre los peers que la valoraron;
// 0 si ningún peer la valoró.
func scoreCollaborative(idx *index, rated map[int]float64, peers []Peer) []Scored {
	out := make([]Scored, 0, len(idx.movies))
	for _, m := range idx.movies {
		if _, ok := rated[m.MovieID]; ok {
			continue
		}
		var num, den float64
		for _, p := range peers {
			h := idx.history[p.UserID]
			if h == nil {
				continue
			}
			if r, ok := h.byID[m.MovieID]; ok {
				num += r * p.Weight
				den += p.Weight
			}
		}
		score := 0.0
		if den > 0 {
			score = num / den
		}
		out = append(out, Scored{MovieID: m.MovieID, Score: score})
	}
	return out
}
