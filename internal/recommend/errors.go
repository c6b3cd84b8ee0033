package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: usuario o película desconocidos.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData no es un fallo del sistema; lo devuelven solo las
	// operaciones que no tienen tier de fallback (AssignCluster sin población).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInferenceUnavailable: el model server falló o devolvió algo malformado.
	ErrInferenceUnavailable = errors.New("inference unavailable")
)

// inferenceErr envuelve err como ErrInferenceUnavailable si todavía no lo está.
func inferenceErr(op string, err error) error {
	if errors.Is(err, ErrInferenceUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrInferenceUnavailable, err)
}
