package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/recommend"
	"nodosml-recsys/internal/service"
)

type RecommendHandler struct {
	svc *service.RecommendService
}

func NewRecommendHandler(s *service.RecommendService) *RecommendHandler {
	return &RecommendHandler{svc: s}
}

func recRequest(r *http.Request, userID int, mode recommend.Mode) service.RecRequest {
	q := r.URL.Query()
	n := queryInt(r, "n", 0)
	if n == 0 {
		// alias histórico
		n = queryInt(r, "k", 0)
	}
	if m := q.Get("mode"); m != "" && mode == "" {
		mode = recommend.Mode(m)
	}
	refresh, _ := strconv.ParseBool(q.Get("refresh"))
	return service.RecRequest{UserID: userID, N: n, Mode: mode, Refresh: refresh}
}

func (h *RecommendHandler) serve(w http.ResponseWriter, r *http.Request, mode recommend.Mode) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.Recommend(r.Context(), recRequest(r, userID, mode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Recomendaciones para un usuario (tiered)
// @Tags recommend
// @Security BearerAuth
// @Produce json
// @Param id path int true "userId"
// @Param n query int false "cantidad de recomendaciones (máx REC_MAX_N)"
// @Param mode query string false "tiered|profile (default: tiered)"
// @Param refresh query bool false "si true, ignora cache Redis"
// @Success 200 {object} models.RecResponse
// @Router /users/{id}/recommendations [get]
func (h *RecommendHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "")
}

// @Summary Recomendaciones por perfil (clasificador + afinidad de géneros)
// @Tags recommend
// @Security BearerAuth
// @Produce json
// @Param id path int true "userId"
// @Param n query int false "cantidad de recomendaciones"
// @Success 200 {object} models.RecResponse
// @Router /users/{id}/recommendations/profile [get]
func (h *RecommendHandler) GetProfileRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, recommend.ModeProfile)
}

// @Summary Historial de recomendaciones servidas
// @Tags recommend
// @Security BearerAuth
// @Produce json
// @Param limit query int false "límite (default: 20, máx 100)"
// @Success 200 {array} models.Recommendation
// @Router /me/recommendations/history [get]
func (h *RecommendHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := h.svc.History(r.Context(), userID, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// @Summary Cluster de comportamiento del usuario
// @Tags recommend
// @Security BearerAuth
// @Produce json
// @Param id path int true "userId"
// @Success 200 {object} recommend.ClusterAssignment
// @Failure 422 {object} map[string]string
// @Router /users/{id}/cluster [get]
func (h *RecommendHandler) GetCluster(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.AssignCluster(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"cluster": a.Cluster,
		"cold":    a.Cold,
		"members": len(a.Members),
	})
}

// @Summary Rating esperado para una película
// @Tags recommend
// @Security BearerAuth
// @Produce json
// @Param movieId path int true "movieId"
// @Success 200 {object} map[string]any
// @Router /me/movies/{movieId}/predicted-rating [get]
func (h *RecommendHandler) GetPredictedRating(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	movieID, err := pathInt(r, "movieId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rating, err := h.svc.PredictRating(r.Context(), userID, movieID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":          userID,
		"movieId":         movieID,
		"predictedRating": rating,
	})
}

// upgrader global
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary Recomendaciones en tiempo real (WebSocket)
// @Description Emite start, una línea progress por etapa (snapshot_loaded, scored o cache_hit) y al final recommendations o error.
// @Tags recommend
// @Produce json
// @Param id path int true "userId"
// @Param n query int false "cantidad de recomendaciones"
// @Param mode query string false "tiered|profile"
// @Param refresh query bool false "si true, ignora cache Redis"
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/ws/recommendations [get]
func (h *RecommendHandler) GetRecommendationsWS(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade ya respondió con el error HTTP
		logging.Warn().Err(err).Msg("no se pudo abrir WebSocket")
		return
	}
	defer conn.Close()

	send := func(msg map[string]any) {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			logging.Debug().Err(err).Int("user", userID).Msg("error escribiendo en WebSocket")
		}
	}

	req := recRequest(r, userID, "")
	req.Progress = func(stage string, detail map[string]any) {
		send(map[string]any{
			"type":   "progress",
			"stage":  stage,
			"detail": detail,
		})
	}

	// Mensaje inicial
	send(map[string]any{
		"type": "start",
		"msg":  "Conexión WS abierta, iniciando cálculo…",
	})

	resp, err := h.svc.Recommend(r.Context(), req)
	if err != nil {
		send(map[string]any{
			"type":   "error",
			"status": statusFor(err),
			"error":  err.Error(),
		})
		return
	}

	// Mensaje final con recomendaciones
	send(map[string]any{
		"type":        "recommendations",
		"userId":      userID,
		"tier":        resp.Tier,
		"cluster":     resp.Cluster,
		"items":       resp.Items,
		"generatedAt": time.Now(),
	})
}
