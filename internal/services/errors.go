package services

import (
	"errors"
	"fmt"

	"safeshe-backend-go/internal/models"
)

type ServiceError struct {
	Status  int
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: 400, Message: msg}
}

// ErrUnsupported reports a value outside a fixed allow-set.
func ErrUnsupported(msg string) error {
	return ServiceError{Status: 400, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: 401, Message: msg}
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// validateInput runs model validation and maps failures to a 400.
func validateInput(v any) error {
	err := models.Validate(v)
	if err == nil {
		return nil
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return ErrBadRequest(verr.Error())
	}
	return ErrBadRequest("Invalid payload")
}
