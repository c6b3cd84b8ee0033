package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	"nodosml-recsys/internal/logging"
	"nodosml-recsys/internal/recommend"
	"nodosml-recsys/internal/service"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("error escribiendo respuesta JSON")
	}
}

// statusFor traduce los errores del dominio a códigos HTTP.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, service.ErrInvalidInput), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, recommend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, recommend.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, recommend.ErrInferenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("error interno")
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

var errBadRequest = errors.New("bad request")

// decodeBody decodifica JSON y aplica las reglas `validate` del struct.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: body inválido: %v", errBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// pathInt lee un parámetro entero positivo de la ruta chi.
func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s inválido", errBadRequest, name)
	}
	return v, nil
}

// queryInt devuelve def si el parámetro falta o no es un entero.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// targetUser: /me usa el sub del token, /users/{id} el parámetro de ruta.
func targetUser(r *http.Request) (int, error) {
	if chi.URLParam(r, "id") != "" {
		return pathInt(r, "id")
	}
	id := UserIDFromContext(r.Context())
	if id <= 0 {
		return 0, fmt.Errorf("%w: token sin usuario", errBadRequest)
	}
	return id, nil
}
