package handler

import (
	"net/http"

	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

type userResponse struct {
	UserID          int      `json:"userId"`
	FirstName       string   `json:"firstName,omitempty"`
	LastName        string   `json:"lastName,omitempty"`
	Username        string   `json:"username,omitempty"`
	Email           string   `json:"email"`
	Role            string   `json:"role"`
	About           string   `json:"about,omitempty"`
	PreferredGenres []string `json:"preferredGenres,omitempty"`
	Age             *int     `json:"age,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	Occupation      *int     `json:"occupation,omitempty"`
	Zip             string   `json:"zip,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

func toUserResponse(u *models.UserDoc) userResponse {
	return userResponse{
		UserID:          u.UserID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Username:        u.Username,
		Email:           u.Email,
		Role:            u.Role,
		About:           u.About,
		PreferredGenres: u.PreferredGenres,
		Age:             u.Age,
		Gender:          u.Gender,
		Occupation:      u.Occupation,
		Zip:             u.Zip,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func NewAuthHandler(s *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: s}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`

	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Username        string   `json:"username" validate:"omitempty,alphanum,max=32"`
	About           string   `json:"about" validate:"max=500"`
	PreferredGenres []string `json:"preferredGenres"`

	// Demografía (MovieLens 100k); occupation es el índice 0..20
	Age        *int   `json:"age" validate:"omitempty,min=1,max=120"`
	Gender     string `json:"gender" validate:"omitempty,oneof=M F m f"`
	Occupation *int   `json:"occupation" validate:"omitempty,min=0,max=20"`
	Zip        string `json:"zip" validate:"max=10"`
}

// @Summary Register
// @Description Crea un usuario nuevo
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "datos"
// @Success 201 {object} userResponse
// @Failure 400 {object} map[string]string
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.Register(r.Context(), service.RegisterUserData{
		Email:           req.Email,
		Password:        req.Password,
		Role:            req.Role,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		About:           req.About,
		PreferredGenres: req.PreferredGenres,
		Demographics: service.Demographics{
			Age:        req.Age,
			Gender:     req.Gender,
			Occupation: req.Occupation,
			Zip:        req.Zip,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "credenciales"
// @Success 200 {object} map[string]any
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(u),
	})
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	Password *string `json:"password" validate:"omitempty,min=6"`

	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	Username        *string   `json:"username" validate:"omitempty,alphanum,max=32"`
	About           *string   `json:"about" validate:"omitempty,max=500"`
	PreferredGenres *[]string `json:"preferredGenres"`

	Age        *int    `json:"age" validate:"omitempty,min=1,max=120"`
	Gender     *string `json:"gender" validate:"omitempty,oneof=M F m f"`
	Occupation *int    `json:"occupation" validate:"omitempty,min=0,max=20"`
	Zip        *string `json:"zip" validate:"omitempty,max=10"`
}

// @Summary Actualizar usuario
// @Description Actualiza datos, preferencias y demografía. Todos los campos son opcionales.
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "userId"
// @Param body body updateUserRequest true "datos a actualizar"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{id}/update [put]
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err = h.svc.UpdateUser(r.Context(), id, service.UpdateUserData{
		Email:           req.Email,
		Role:            req.Role,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		About:           req.About,
		PreferredGenres: req.PreferredGenres,
		Age:             req.Age,
		Gender:          req.Gender,
		Occupation:      req.Occupation,
		Zip:             req.Zip,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// @Summary Listar usuarios (ADMIN)
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param q query string false "búsqueda por email/username/nombre"
// @Param limit query int false "límite (default: 20)"
// @Param offset query int false "offset (default: 0)"
// @Success 200 {array} userResponse
// @Router /users [get]
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit <= 0 {
		limit = 20
	}
	offset := max(queryInt(r, "offset", 0), 0)

	users, err := h.svc.ListUsers(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Obtener usuario (ADMIN por id, o /me)
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path int true "userId"
// @Success 200 {object} userResponse
// @Router /users/{id} [get]
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := targetUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
