package recommend

import (
	"math"
	"testing"
)

func TestPearson(t *testing.T) {
	tests := []struct {
		name    string
		x, y    []float64
		want    float64
		wantNaN bool
	}{
		{name: "identical", x: []float64{5, 1}, y: []float64{5, 1}, want: 1},
		{name: "shifted is still perfect", x: []float64{1, 2, 3}, y: []float64{3, 4, 5}, want: 1},
		{name: "inverse", x: []float64{1, 2, 3}, y: []float64{3, 2, 1}, want: -1},
		{name: "constant vector is undefined", x: []float64{3, 3, 3}, y: []float64{1, 2, 3}, wantNaN: true},
		{name: "single point is undefined", x: []float64{3}, y: []float64{4}, wantNaN: true},
		{name: "length mismatch is undefined", x: []float64{1, 2}, y: []float64{1, 2, 3}, wantNaN: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pearson(tt.x, tt.y)
			if tt.wantNaN {
				if !math.IsNaN(got) {
					t.Errorf("Pearson() = %v, want NaN", got)
				}
				return
			}
			if !almostEqual(got, tt.want, 1e-12) {
				t.Errorf("Pearson() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarPeers_PerfectCorrelation(t *testing.T) {
	target := map[int]float64{1: 5, 2: 1, 3: 4}
	ratings := map[int]map[int]float64{
		3:  target,
		10: {1: 5, 2: 1},
		11: {1: 4, 2: 2, 3: 3, 4: 5},
	}

	peers := SimilarPeers(3, target, []int{3, 10, 11}, ratings, DefaultPeerK)
	if len(peers) != 2 {
		t.Fatalf("len(peers) = %d, want 2 (%+v)", len(peers), peers)
	}
	if peers[0].UserID != 10 {
		t.Fatalf("top peer = %d, want 10", peers[0].UserID)
	}
	if peers[0].Correlation != 1.0 {
		t.Errorf("corr(u3,p1) = %v, want exactly 1.0", peers[0].Correlation)
	}
	if peers[0].Weight <= peers[1].Weight {
		t.Errorf("p1 weight %v is not the maximum (%v)", peers[0].Weight, peers[1].Weight)
	}
	if peers[0].CoRated != 2 {
		t.Errorf("CoRated = %d, want 2", peers[0].CoRated)
	}
}

func TestSimilarPeers_Filters(t *testing.T) {
	target := map[int]float64{1: 5, 2: 1, 3: 4}
	ratings := map[int]map[int]float64{
		20: {1: 1, 2: 5, 3: 2},        // anticorrelado
		21: {1: 5, 9: 4},              // 1 solo ítem en común
		22: {1: 3, 2: 3, 3: 3},        // varianza cero
		23: {7: 5, 8: 1},              // nada en común
		24: {1: 4.5, 2: 1.5, 3: 3.5}, // válido
	}

	peers := SimilarPeers(1, target, []int{20, 21, 22, 23, 24}, ratings, DefaultPeerK)
	if len(peers) != 1 || peers[0].UserID != 24 {
		t.Fatalf("peers = %+v, want only 24", peers)
	}
	for _, p := range peers {
		if p.Correlation <= 0 || p.CoRated < MinCoRated {
			t.Errorf("peer %+v should have been dropped", p)
		}
	}
	if peers[0].Weight != 1 {
		t.Errorf("single peer weight = %v, want 1", peers[0].Weight)
	}
}

func TestSimilarPeers_TopKTieBreakAndWeights(t *testing.T) {
	target := map[int]float64{1: 5, 2: 1, 3: 4}
	ratings := map[int]map[int]float64{}
	var members []int
	// 12 peers idénticos en orden inverso: el desempate es por id asc
	for pid := 112; pid >= 101; pid-- {
		ratings[pid] = map[int]float64{1: 5, 2: 1, 3: 4}
		members = append(members, pid)
	}
	// uno con correlación menor pero positiva
	ratings[50] = map[int]float64{1: 4, 2: 2, 3: 3}
	members = append(members, 50)

	peers := SimilarPeers(1, target, members, ratings, 10)
	if len(peers) != 10 {
		t.Fatalf("len(peers) = %d, want 10", len(peers))
	}
	var sum float64
	for i, p := range peers {
		if p.UserID != 101+i {
			t.Errorf("peers[%d] = %d, want %d", i, p.UserID, 101+i)
		}
		sum += p.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("sum(weights) = %v, want 1", sum)
	}
}

func TestSimilarPeers_WeightsSumToOne(t *testing.T) {
	target := map[int]float64{1: 5, 2: 1, 3: 4, 4: 2}
	ratings := map[int]map[int]float64{
		2: {1: 4, 2: 2, 3: 3},
		3: {1: 5, 2: 2, 4: 1},
		4: {2: 1, 3: 5, 4: 3},
		5: {1: 3, 2: 1, 3: 4, 4: 3},
	}
	peers := SimilarPeers(1, target, []int{1, 2, 3, 4, 5}, ratings, DefaultPeerK)
	if len(peers) == 0 {
		t.Fatal("expected at least one peer")
	}
	var sum float64
	for _, p := range peers {
		sum += p.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("sum(weights) = %v, want 1", sum)
	}
}
