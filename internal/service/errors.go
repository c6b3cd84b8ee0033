package service

import "errors"

var (
	// ErrInvalidInput: datos de entrada que pasan el binding pero no las
	// reglas del dominio (rol, géneros, email vacío...).
	ErrInvalidInput = errors.New("invalid input")

	ErrConflict = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid credentials")
)
