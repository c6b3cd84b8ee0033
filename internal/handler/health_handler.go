package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger es cualquier dependencia que se puede sondear (model server).
type Pinger interface {
	Ping(ctx context.Context) error
}

// @Summary Healthcheck
// @Description ok si el model server responde; degraded en otro caso.
// @Tags health
// @Success 200
// @Failure 503
// @Router /health [get]
func Health(model Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if model != nil {
			if err := model.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"model":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
