package handler

import (
	"net/http"

	"nodosml-recsys/internal/service"
)

type RatingHandler struct {
	svc *service.RatingService
}

func NewRatingHandler(s *service.RatingService) *RatingHandler { return &RatingHandler{svc: s} }

type ratingRequest struct {
	MovieID int     `json:"movieId" validate:"required,gt=0"`
	Rating  float64 `json:"rating" validate:"gte=0.5,lte=5"`
}

// @Summary Crear/actualizar rating
// @Tags ratings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body ratingRequest true "rating"
// @Success 200 {object} models.RatingDoc
// @Router /me/ratings [post]
func (h *RatingHandler) PostRating(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ratingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.svc.AddOrUpdate(r.Context(), userID, req.MovieID, req.Rating)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// @Summary Listar ratings del usuario
// @Tags ratings
// @Security BearerAuth
// @Produce json
// @Param limit query int false "límite (default: 100)"
// @Param offset query int false "offset"
// @Router /me/ratings [get]
// @Router /users/{id}/ratings [get]
func (h *RatingHandler) GetRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit := queryInt(r, "limit", 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	list, err := h.svc.GetByUser(r.Context(), userID, limit, max(queryInt(r, "offset", 0), 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// @Summary Rating del usuario para una película
// @Tags ratings
// @Security BearerAuth
// @Produce json
// @Param movieId path int true "movieId"
// @Success 200 {object} models.RatingDoc
// @Failure 404 {object} map[string]string
// @Router /me/ratings/{movieId} [get]
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
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
	rd, err := h.svc.Get(r.Context(), userID, movieID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}
