package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/recommend"
)

type staticSnapshot struct {
	snap  *recommend.Snapshot
	err   error
	loads int
}

func (s *staticSnapshot) Load(context.Context) (*recommend.Snapshot, error) {
	s.loads++
	return s.snap, s.err
}

type memHistory struct {
	recs []*models.Recommendation
	err  error
}

func (h *memHistory) Insert(_ context.Context, rec *models.Recommendation) error {
	h.recs = append(h.recs, rec)
	return h.err
}

// FindByUser recorre al revés: lo último insertado es lo más reciente.
func (h *memHistory) FindByUser(_ context.Context, userID int, limit int64) ([]models.Recommendation, error) {
	if h.err != nil {
		return nil, h.err
	}
	var out []models.Recommendation
	for i := len(h.recs) - 1; i >= 0 && (limit <= 0 || int64(len(out)) < limit); i-- {
		if h.recs[i].UserID == userID {
			out = append(out, *h.recs[i])
		}
	}
	return out, nil
}

// nullInference: todos al cluster 0, P(like) = 0.5, rating 3.
type nullInference struct{}

func (nullInference) PredictClusters(_ context.Context, rows [][]float64) ([]int, error) {
	return make([]int, len(rows)), nil
}
func (nullInference) PredictGenreCluster(context.Context, []float64) (int, error) { return 0, nil }
func (nullInference) PredictLikeProbability(context.Context, []float64) (float64, error) {
	return 0.5, nil
}
func (nullInference) PredictRating(context.Context, []float64) (float64, error) { return 3, nil }

func testSnapshot() *recommend.Snapshot {
	snap := &recommend.Snapshot{Users: []models.UserDoc{{UserID: 1}, {UserID: 2}}}
	for m := 1; m <= 20; m++ {
		snap.Movies = append(snap.Movies, models.MovieDoc{MovieID: m, Title: "m", Genres: []string{"Drama"}})
	}
	for u := 10; u < 16; u++ {
		for m := 1; m <= 20; m++ {
			snap.Ratings = append(snap.Ratings, models.RatingDoc{UserID: u, MovieID: m, Rating: float64((u*m)%5 + 1), Timestamp: 1})
		}
	}
	return snap
}

func newTestRecommendService(loader SnapshotLoader, hist HistoryStore) *RecommendService {
	engine := recommend.NewEngine(nullInference{}, recommend.DefaultConfig(), zerolog.Nop())
	return NewRecommendService(loader, hist, engine, RecommendOptions{DefaultN: 10, MaxN: 15, CacheTTLSeconds: 60})
}

func TestRecommend_ClampsNAndRecordsHistory(t *testing.T) {
	hist := &memHistory{}
	svc := newTestRecommendService(&staticSnapshot{snap: testSnapshot()}, hist)

	tests := []struct {
		name      string
		n         int
		wantItems int
	}{
		{"default", 0, 10},
		{"explicit", 3, 3},
		{"clamped", 500, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Recommend(context.Background(), RecRequest{UserID: 1, N: tt.n})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(resp.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(resp.Items), tt.wantItems)
			}
			if resp.Tier != "global_popularity" || resp.Mode != "tiered" {
				t.Errorf("tier/mode = %s/%s, want global_popularity/tiered", resp.Tier, resp.Mode)
			}
		})
	}

	if len(hist.recs) != 3 {
		t.Fatalf("history entries = %d, want 3", len(hist.recs))
	}
	if hist.recs[0].ID == "" || hist.recs[0].ID == hist.recs[1].ID {
		t.Errorf("history ids not unique: %q, %q", hist.recs[0].ID, hist.recs[1].ID)
	}
}

func TestRecommend_HistoryFailureDoesNotFailResponse(t *testing.T) {
	svc := newTestRecommendService(&staticSnapshot{snap: testSnapshot()}, &memHistory{err: errors.New("mongo down")})
	if _, err := svc.Recommend(context.Background(), RecRequest{UserID: 1}); err != nil {
		t.Errorf("Recommend() error = %v, want nil", err)
	}
}

func TestRecommend_ProfileModeReportsProgress(t *testing.T) {
	svc := newTestRecommendService(&staticSnapshot{snap: testSnapshot()}, &memHistory{})

	var stages []string
	resp, err := svc.Recommend(context.Background(), RecRequest{
		UserID:   2,
		N:        5,
		Mode:     recommend.ModeProfile,
		Progress: func(stage string, _ map[string]any) { stages = append(stages, stage) },
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Mode != "profile" || resp.Tier != "" || len(resp.Items) != 5 {
		t.Errorf("resp = %+v, want 5 profile items without tier", resp)
	}
	if len(stages) != 2 || stages[0] != "snapshot_loaded" || stages[1] != "scored" {
		t.Errorf("stages = %v, want [snapshot_loaded scored]", stages)
	}
}

func TestRecommend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		loader  *staticSnapshot
		req     RecRequest
		wantErr error
	}{
		{"unknown user", &staticSnapshot{snap: testSnapshot()}, RecRequest{UserID: 999}, recommend.ErrNotFound},
		{"bad mode", &staticSnapshot{snap: testSnapshot()}, RecRequest{UserID: 1, Mode: "magic"}, ErrInvalidInput},
		{"store down", &staticSnapshot{err: errMongo}, RecRequest{UserID: 1}, errMongo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestRecommendService(tt.loader, &memHistory{})
			if _, err := svc.Recommend(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Recommend() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

var errMongo = errors.New("server selection timeout")

func TestAssignClusterAndPredictRating(t *testing.T) {
	loader := &staticSnapshot{snap: testSnapshot()}
	svc := newTestRecommendService(loader, &memHistory{})

	a, err := svc.AssignCluster(context.Background(), 10)
	if err != nil {
		t.Fatalf("AssignCluster() error = %v", err)
	}
	if a.Cluster != 0 || len(a.Members) != 6 {
		t.Errorf("assignment = %+v, want cluster 0 with 6 members", a)
	}

	r, err := svc.PredictRating(context.Background(), 1, 5)
	if err != nil || r != 3 {
		t.Errorf("PredictRating() = %v, %v; want 3", r, err)
	}
	if loader.loads != 2 {
		t.Errorf("snapshot loads = %d, want 2 (one per call)", loader.loads)
	}
}

func TestCacheKey(t *testing.T) {
	got := cacheKey(RecRequest{UserID: 7, N: 10, Mode: recommend.ModeTiered})
	if got != "rec:user:7:n:10:mode:tiered" {
		t.Errorf("cacheKey() = %q", got)
	}
	if p := userCachePrefix(7); got[:len(p)] != p {
		t.Errorf("key %q does not start with invalidation prefix %q", got, p)
	}
}

func TestHistory(t *testing.T) {
	hist := &memHistory{}
	svc := newTestRecommendService(&staticSnapshot{snap: testSnapshot()}, hist)
	ctx := context.Background()

	for _, n := range []int{1, 2, 3} {
		if _, err := svc.Recommend(ctx, RecRequest{UserID: 1, N: n, Refresh: true}); err != nil {
			t.Fatalf("Recommend(n=%d) error = %v", n, err)
		}
	}
	if _, err := svc.Recommend(ctx, RecRequest{UserID: 2, N: 4, Refresh: true}); err != nil {
		t.Fatalf("Recommend(user 2) error = %v", err)
	}

	got, err := svc.History(ctx, 1, 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(got))
	}
	// más reciente primero: n=3 y luego n=2
	if len(got[0].Items) != 3 || len(got[1].Items) != 2 {
		t.Errorf("History items = %d, %d; want 3, 2", len(got[0].Items), len(got[1].Items))
	}
	for _, rec := range got {
		if rec.UserID != 1 || rec.ID == "" {
			t.Errorf("history entry = {user %d, id %q}, want user 1 with id", rec.UserID, rec.ID)
		}
	}

	empty, err := svc.History(ctx, 99, 0)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("History(unknown) = %v, %v; want empty non-nil slice", empty, err)
	}

	failing := newTestRecommendService(&staticSnapshot{snap: testSnapshot()}, &memHistory{err: errors.New("mongo down")})
	if _, err := failing.History(ctx, 1, 10); err == nil {
		t.Error("History() with store down: want error")
	}
}
