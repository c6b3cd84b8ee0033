// Package inference habla con el model server (kmeans / xgboost congelados).
// Cada endpoint recibe {"features": [...]} y clasifica una sola fila.
package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/metrics"
	"nodosml-recsys/internal/recommend"
)

const (
	EndpointClusterRatings = "/cluster-user-ratings"
	EndpointClusterGenres  = "/cluster-user-genres"
	EndpointLikeDislike    = "/predict-like-dislike"
	EndpointRating         = "/predict-rating"

	breakerName = "model-server"

	// filas del batch de clustering en vuelo a la vez
	defaultParallelism = 8

	// reintentos de una fila rechazada por half-open (ErrTooManyRequests)
	halfOpenRetries = 5
	halfOpenBackoff = 20 * time.Millisecond
)

type featuresRequest struct {
	Features []float64 `json:"features"`
}

type clusterResponse struct {
	Cluster *int `json:"cluster"`
}

// el servidor original solo devuelve like_dislike (0/1); si expone
// predict_proba se usa probability
type likeResponse struct {
	Probability *float64 `json:"probability"`
	LikeDislike *int     `json:"like_dislike"`
}

type ratingResponse struct {
	PredictedRating *float64 `json:"predicted_rating"`
}

// Client implementa recommend.Inference sobre HTTP.
type Client struct {
	baseURL     string
	http        *http.Client
	cb          *gobreaker.CircuitBreaker[[]byte]
	parallelism int
}

type Option func(*Client)

// WithHTTPClient reemplaza el *http.Client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreakerSettings reemplaza la configuración del circuit breaker.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.cb = newBreaker(st) }
}

func WithParallelism(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		parallelism: defaultParallelism,
	}
	c.cb = newBreaker(defaultBreakerSettings())
	for _, o := range opts {
		o(c)
	}
	return c
}

// defaultBreakerSettings: abre con >= 60% de fallos sobre al menos 10
// requests, espera 30s antes de pasar a half-open.
func defaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] abriendo circuito hacia el model server")
				return true
			}
			return false
		},
	}
}

func newBreaker(st gobreaker.Settings) *gobreaker.CircuitBreaker[[]byte] {
	if st.Name == "" {
		st.Name = breakerName
	}
	if st.IsExcluded == nil {
		st.IsExcluded = isCancellation
	}
	metrics.CircuitBreakerState.WithLabelValues(st.Name).Set(0)
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logging.Info().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("[CIRCUIT BREAKER] cambio de estado")
		metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

// isCancellation: una request cancelada por el caller no dice nada de la
// salud del model server y no cuenta para el breaker.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return -1
	}
}

// unavailable marca cualquier fallo como recommend.ErrInferenceUnavailable.
func unavailable(endpoint string, err error) error {
	return fmt.Errorf("%s: %w: %w", endpoint, recommend.ErrInferenceUnavailable, err)
}

// outcome es la etiqueta de metrics.InferenceRequests para un resultado.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case isCancellation(err):
		return "cancelled"
	default:
		return "failure"
	}
}

// do ejecuta la request dentro del breaker y devuelve el cuerpo crudo.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, unavailable(endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	out, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return data, nil
	})

	metrics.InferenceRequests.WithLabelValues(endpoint, outcome(err)).Inc()
	if err != nil {
		return nil, unavailable(endpoint, err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, features []float64, out any) error {
	data, err := c.do(ctx, http.MethodPost, endpoint, featuresRequest{Features: features})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return unavailable(endpoint, fmt.Errorf("respuesta inválida: %w", err))
	}
	return nil
}

func (c *Client) predictCluster(ctx context.Context, endpoint string, features []float64) (int, error) {
	var resp clusterResponse
	if err := c.post(ctx, endpoint, features, &resp); err != nil {
		return 0, err
	}
	if resp.Cluster == nil {
		return 0, unavailable(endpoint, errors.New("respuesta sin cluster"))
	}
	return *resp.Cluster, nil
}

// predictClusterRow reintenta las filas rechazadas mientras el breaker está
// half-open y ya tiene sus MaxRequests en vuelo.
func (c *Client) predictClusterRow(ctx context.Context, row []float64) (int, error) {
	for attempt := 1; ; attempt++ {
		label, err := c.predictCluster(ctx, EndpointClusterRatings, row)
		if err == nil || !errors.Is(err, gobreaker.ErrTooManyRequests) || attempt > halfOpenRetries {
			return label, err
		}
		select {
		case <-ctx.Done():
			return 0, unavailable(EndpointClusterRatings, ctx.Err())
		case <-time.After(time.Duration(attempt) * halfOpenBackoff):
		}
	}
}

// PredictClusters clasifica cada fila; el servidor solo acepta una fila por
// request, así que se reparten entre c.parallelism goroutines. Con el breaker
// fuera de closed va de a una fila: half-open solo deja pasar MaxRequests y
// cierra después de MaxRequests éxitos seguidos. Un solo fallo invalida el
// batch completo.
func (c *Client) PredictClusters(ctx context.Context, rows [][]float64) ([]int, error) {
	labels := make([]int, len(rows))
	if len(rows) == 0 {
		return labels, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	jobs := make(chan int)
	workers := min(c.parallelism, len(rows))
	if c.cb.State() != gobreaker.StateClosed {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				label, err := c.predictClusterRow(ctx, rows[i])
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				labels[i] = label
			}
		}()
	}

feed:
	for i := range rows {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(EndpointClusterRatings, err)
	}
	return labels, nil
}

func (c *Client) PredictGenreCluster(ctx context.Context, prefs []float64) (int, error) {
	return c.predictCluster(ctx, EndpointClusterGenres, prefs)
}

func (c *Client) PredictLikeProbability(ctx context.Context, features []float64) (float64, error) {
	var resp likeResponse
	if err := c.post(ctx, EndpointLikeDislike, features, &resp); err != nil {
		return 0, err
	}
	switch {
	case resp.Probability != nil:
		return *resp.Probability, nil
	case resp.LikeDislike != nil:
		return float64(*resp.LikeDislike), nil
	default:
		return 0, unavailable(EndpointLikeDislike, errors.New("respuesta sin like_dislike"))
	}
}

func (c *Client) PredictRating(ctx context.Context, features []float64) (float64, error) {
	var resp ratingResponse
	if err := c.post(ctx, EndpointRating, features, &resp); err != nil {
		return 0, err
	}
	if resp.PredictedRating == nil || math.IsNaN(*resp.PredictedRating) {
		return 0, unavailable(EndpointRating, errors.New("respuesta sin predicted_rating"))
	}
	return *resp.PredictedRating, nil
}

// Ping consulta GET / del model server.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/", nil)
	return err
}

var _ recommend.Inference = (*Client)(nil)
