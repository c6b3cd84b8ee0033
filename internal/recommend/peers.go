package recommend

import (
	"math"
	"sort"
)

const (
	DefaultPeerK = 10
	MinCoRated   = 2
)

// Peer es un vecino del mismo cluster con correlación positiva.
// Weight = Correlation / suma de correlaciones de los peers elegidos.
type Peer struct {
	UserID      int     `json:"userId"`
	Correlation float64 `json:"correlation"`
	Weight      float64 `json:"weight"`
	CoRated     int     `json:"coRated"`
}

// Pearson devuelve la correlación de x e y (mismo largo). NaN si no está
// definida (largo < 2 o varianza cero en alguno de los dos).
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN()
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/float64(n), sy/float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	den := math.Sqrt(sxx * syy)
	if den == 0 {
		return math.NaN()
	}
	return sxy / den
}

// SimilarPeers calcula Pearson entre target y cada miembro del cluster sobre
// los ítems co-valorados. Descarta peers con < MinCoRated ítems en común o
// correlación no finita / <= 0 (la anticorrelación no aporta peso). Devuelve
// hasta k peers por correlación desc (desempate por userId asc) con pesos
// normalizados a 1.
func SimilarPeers(targetID int, target map[int]float64, members []int, ratingsByUser map[int]map[int]float64, k int) []Peer {
	if k <= 0 {
		k = DefaultPeerK
	}

	// ítems del target en orden fijo
	targetItems := make([]int, 0, len(target))
	for m := range target {
		targetItems = append(targetItems, m)
	}
	sort.Ints(targetItems)

	var peers []Peer
	x := make([]float64, 0, len(targetItems))
	y := make([]float64, 0, len(targetItems))
	for _, pid := range members {
		if pid == targetID {
			continue
		}
		pr := ratingsByUser[pid]
		if len(pr) < MinCoRated {
			continue
		}

		x, y = x[:0], y[:0]
		for _, m := range targetItems {
			if r, ok := pr[m]; ok {
				x = append(x, target[m])
				y = append(y, r)
			}
		}
		if len(x) < MinCoRated {
			continue
		}

		c := Pearson(x, y)
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			continue
		}
		peers = append(peers, Peer{UserID: pid, Correlation: c, CoRated: len(x)})
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Correlation != peers[j].Correlation {
			return peers[i].Correlation > peers[j].Correlation
		}
		return peers[i].UserID < peers[j].UserID
	})
	if len(peers) > k {
		peers = peers[:k]
	}

	var total float64
	for _, p := range peers {
		total += p.Correlation
	}
	for i := range peers {
		peers[i].Weight = peers[i].Correlation / total
	}
	return peers
}
