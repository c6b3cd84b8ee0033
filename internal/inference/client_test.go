package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"nodosml-recsys/internal/recommend"
)

// modelServer imita el servidor FastAPI: cluster = int(features[0]).
func modelServer(t *testing.T, handler func(path string, features []float64) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			_, _ = io.WriteString(w, `{"message":"API is running"}`)
			return
		}
		var req featuresRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		status, body := handler(r.URL.Path, req.Features)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestPredictClusters_PreservesRowOrder(t *testing.T) {
	srv := modelServer(t, func(path string, f []float64) (int, string) {
		if path != EndpointClusterRatings {
			t.Errorf("path = %s, want %s", path, EndpointClusterRatings)
		}
		return http.StatusOK, fmt.Sprintf(`{"cluster":%d}`, int(f[0]))
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithParallelism(3))
	rows := [][]float64{{3, 1}, {1, 1}, {2, 1}, {0, 1}, {5, 1}, {4, 1}}
	got, err := c.PredictClusters(context.Background(), rows)
	if err != nil {
		t.Fatalf("PredictClusters() error = %v", err)
	}
	want := []int{3, 1, 2, 0, 5, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("labels[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPredictClusters_OneFailureFailsBatch(t *testing.T) {
	srv := modelServer(t, func(_ string, f []float64) (int, string) {
		if f[0] == 2 {
			return http.StatusInternalServerError, "boom"
		}
		return http.StatusOK, `{"cluster":0}`
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.PredictClusters(context.Background(), [][]float64{{1}, {2}, {3}})
	if !errors.Is(err, recommend.ErrInferenceUnavailable) {
		t.Errorf("error = %v, want ErrInferenceUnavailable", err)
	}
}

func TestPredictLikeProbability(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{name: "probability wins", body: `{"probability":0.83,"like_dislike":1}`, want: 0.83},
		{name: "hard label", body: `{"like_dislike":1}`, want: 1},
		{name: "hard dislike", body: `{"like_dislike":0}`, want: 0},
		{name: "missing field", body: `{"message":"ok"}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := modelServer(t, func(path string, _ []float64) (int, string) {
				if path != EndpointLikeDislike {
					t.Errorf("path = %s, want %s", path, EndpointLikeDislike)
				}
				return http.StatusOK, tt.body
			})
			defer srv.Close()

			got, err := NewClient(srv.URL, time.Second).PredictLikeProbability(context.Background(), []float64{1, 2})
			if tt.wantErr {
				if !errors.Is(err, recommend.ErrInferenceUnavailable) {
					t.Errorf("error = %v, want ErrInferenceUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PredictLikeProbability() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PredictLikeProbability() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredictRatingAndGenreCluster(t *testing.T) {
	var sent atomic.Int32
	srv := modelServer(t, func(path string, f []float64) (int, string) {
		sent.Add(1)
		switch path {
		case EndpointRating:
			return http.StatusOK, `{"predicted_rating":3.25}`
		case EndpointClusterGenres:
			if len(f) != 19 {
				t.Errorf("genre vector len = %d, want 19", len(f))
			}
			return http.StatusOK, `{"cluster":1}`
		}
		return http.StatusNotFound, "not found"
	})
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	r, err := c.PredictRating(context.Background(), []float64{1})
	if err != nil || r != 3.25 {
		t.Errorf("PredictRating() = %v, %v; want 3.25", r, err)
	}
	cl, err := c.PredictGenreCluster(context.Background(), make([]float64, 19))
	if err != nil || cl != 1 {
		t.Errorf("PredictGenreCluster() = %v, %v; want 1", cl, err)
	}
	if sent.Load() != 2 {
		t.Errorf("requests = %d, want 2", sent.Load())
	}
}

func TestPing(t *testing.T) {
	srv := modelServer(t, nil)
	c := NewClient(srv.URL, time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	srv.Close()

	if err := c.Ping(context.Background()); !errors.Is(err, recommend.ErrInferenceUnavailable) {
		t.Errorf("Ping() on closed server = %v, want ErrInferenceUnavailable", err)
	}
}

func TestBreakerOpensAndRejects(t *testing.T) {
	var hits atomic.Int32
	srv := modelServer(t, func(string, []float64) (int, string) {
		hits.Add(1)
		return http.StatusServiceUnavailable, "model not loaded"
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithBreakerSettings(gobreaker.Settings{
		Name:    "test-breaker",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}))

	for i := 0; i < 4; i++ {
		_, err := c.PredictRating(context.Background(), []float64{1})
		if !errors.Is(err, recommend.ErrInferenceUnavailable) {
			t.Fatalf("call %d: error = %v, want ErrInferenceUnavailable", i, err)
		}
		if i >= 2 && !strings.Contains(err.Error(), "open") {
			t.Errorf("call %d: error = %v, want circuit open", i, err)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2 (breaker should short-circuit)", hits.Load())
	}
}

// tripOnFirstFailure: los defaults con un timeout corto y apertura al primer fallo.
func tripOnFirstFailure(name string) gobreaker.Settings {
	st := defaultBreakerSettings()
	st.Name = name
	st.Timeout = 50 * time.Millisecond
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 }
	return st
}

func TestPredictClusters_RecoversAfterBreakerOpens(t *testing.T) {
	var failed atomic.Bool
	srv := modelServer(t, func(_ string, f []float64) (int, string) {
		if failed.CompareAndSwap(false, true) {
			return http.StatusServiceUnavailable, "model not loaded"
		}
		return http.StatusOK, fmt.Sprintf(`{"cluster":%d}`, int(f[0]))
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithBreakerSettings(tripOnFirstFailure("recovery-breaker")))
	rows := make([][]float64, 30)
	for i := range rows {
		rows[i] = []float64{float64(i % 4), 1}
	}

	if _, err := c.PredictClusters(context.Background(), rows); !errors.Is(err, recommend.ErrInferenceUnavailable) {
		t.Fatalf("first batch error = %v, want ErrInferenceUnavailable", err)
	}
	if c.cb.State() == gobreaker.StateClosed {
		t.Fatalf("state after outage = %v, want open", c.cb.State())
	}

	time.Sleep(80 * time.Millisecond)

	for attempt := 0; attempt < 3; attempt++ {
		got, err := c.PredictClusters(context.Background(), rows)
		if err != nil {
			t.Fatalf("batch %d after recovery: error = %v (state=%v)", attempt, err, c.cb.State())
		}
		for i, label := range got {
			if label != i%4 {
				t.Fatalf("batch %d: labels[%d] = %d, want %d", attempt, i, label, i%4)
			}
		}
	}
	if c.cb.State() != gobreaker.StateClosed {
		t.Errorf("state after recovery = %v, want closed", c.cb.State())
	}
}

func TestBreakerIgnoresCancelledRequests(t *testing.T) {
	srv := modelServer(t, func(string, []float64) (int, string) {
		return http.StatusOK, `{"predicted_rating":4}`
	})
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithBreakerSettings(tripOnFirstFailure("cancel-breaker")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PredictRating(ctx, []float64{1})
	if !errors.Is(err, recommend.ErrInferenceUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want ErrInferenceUnavailable wrapping context.Canceled", err)
	}
	if c.cb.State() != gobreaker.StateClosed {
		t.Fatalf("state = %v, want closed (cancellation must not trip)", c.cb.State())
	}
	if r, err := c.PredictRating(context.Background(), []float64{1}); err != nil || r != 4 {
		t.Errorf("PredictRating() = %v, %v; want 4", r, err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "ok", err: nil, want: "success"},
		{name: "open", err: gobreaker.ErrOpenState, want: "rejected"},
		{name: "half-open full", err: gobreaker.ErrTooManyRequests, want: "rejected"},
		{name: "cancelled sibling", err: fmt.Errorf("post: %w", context.Canceled), want: "cancelled"},
		{name: "server error", err: errors.New("status 500: boom"), want: "failure"},
		{name: "timeout", err: context.DeadlineExceeded, want: "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcome(tt.err); got != tt.want {
				t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
