package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"nodosml-recsys/internal/service"
)

// AdminMaintenanceHandler expone endpoints de mantenimiento.
type AdminMaintenanceHandler struct {
	svc *service.AdminMaintenanceService
}

// NewAdminMaintenanceHandler crea el handler.
func NewAdminMaintenanceHandler(svc *service.AdminMaintenanceService) *AdminMaintenanceHandler {
	return &AdminMaintenanceHandler{svc: svc}
}

// @Summary Resumen de datos del recomendador
// @Description Conteos de películas populares, ratings y usuarios con suficientes ratings para peers.
// @Tags admin-maintenance
// @Security BearerAuth
// @Produce json
// @Param minRatings query int false "Mínimo de ratings para considerar una película popular (default REC_MIN_GLOBAL_RATINGS)"
// @Success 200 {object} models.AdminDataSummary
// @Router /admin/maintenance/summary [get]
func (h *AdminMaintenanceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), queryInt(r, "minRatings", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// @Summary Reconstruir ratingStats
// @Description Recalcula la copia desnormalizada ratingStats de todas las películas.
// @Tags admin-maintenance
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.RebuildStatsResult
// @Router /admin/maintenance/stats/rebuild [post]
func (h *AdminMaintenanceHandler) PostRebuildStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RebuildStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Limpiar cache de recomendaciones
// @Tags admin-maintenance
// @Security BearerAuth
// @Produce json
// @Param userId query int false "si se envía, solo limpia ese usuario"
// @Success 200 {object} models.FlushCacheResult
// @Router /admin/maintenance/cache/flush [post]
func (h *AdminMaintenanceHandler) PostFlushCache(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.FlushCache(r.Context(), queryInt(r, "userId", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MountAdminMaintenanceRoutes monta las rutas; el caller pone JWT y AdminOnly.
func MountAdminMaintenanceRoutes(r chi.Router, h *AdminMaintenanceHandler) {
	r.Route("/admin/maintenance", func(r chi.Router) {
		r.Get("/summary", h.GetSummary)
		r.Post("/stats/rebuild", h.PostRebuildStats)
		r.Post("/cache/flush", h.PostFlushCache)
	})
}
