package recommend

import (
	"math/rand/v2"
	"sort"
)

// streams del PCG: cada uso de azar tiene su propia secuencia
const (
	streamExplore uint64 = 0x9e3779b97f4a7c15
	streamJitter  uint64 = 0xbf58476d1ce4e5b9
	streamBlend   uint64 = 0x94d049bb133111eb
)

// seededRand arma un PCG determinista a partir de (seed, userID, stream).
func seededRand(seed uint64, userID int, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed^stream, uint64(int64(userID))))
}

type ranked struct {
	Scored
	jitter float64
}

// Rank excluye las películas ya valoradas, asigna un jitter por película
// (en orden de movieId, así no depende del orden de entrada) y ordena por
// score desc, jitter desc, movieId asc. n <= 0 devuelve todo.
func Rank(scored []Scored, rated map[int]float64, n int, rng *rand.Rand) []Scored {
	cands := make([]ranked, 0, len(scored))
	for _, s := range scored {
		if _, ok := rated[s.MovieID]; ok {
			continue
		}
		cands = append(cands, ranked{Scored: s})
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].MovieID < cands[j].MovieID })
	for i := range cands {
		cands[i].jitter = rng.Float64()
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.jitter != b.jitter {
			return a.jitter > b.jitter
		}
		return a.MovieID < b.MovieID
	})

	if n > 0 && len(cands) > n {
		cands = cands[:n]
	}
	out := make([]Scored, len(cands))
	for i, c := range cands {
		out[i] = c.Scored
	}
	return out
}
