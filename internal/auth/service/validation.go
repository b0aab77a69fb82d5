package service

import (
	"github.com/AlibekovAA/recordkeeper/internal/common/validation"
)

// validateCredentials applies the model rules for a new user. The returned
// error carries the field messages as its cause.
func validateCredentials(input RegisterInput) error {
	if err := validation.Struct(input); err != nil {
		return ErrValidation.WithCause(err)
	}
	return nil
}
