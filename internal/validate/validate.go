package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/flashdeck/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s against its `validate` tags. Failures come back as a
// *domain.ValidationError listing every offending field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		fields = append(fields, domain.FieldError{Field: fe.Namespace(), Message: msg})
	}
	return &domain.ValidationError{Errors: fields}
}
