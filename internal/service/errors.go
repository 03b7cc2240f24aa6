package service

import (
	"fmt"

	"github.com/iliyamo/movie-booking/internal/model"
)

// validationErr wraps model.ErrValidation with a message fit for the
// client.
func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, fmt.Sprintf(format, args...))
}
