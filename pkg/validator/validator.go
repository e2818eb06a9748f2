package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"trafine/pkg/e"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	RegisterCustomValidations(validate)
}

// ValidateStruct validates s and maps the first failing rule onto the
// error taxonomy in pkg/e.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%v: %w", err, e.ErrInvalidInput)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: %w", fe.Field(), e.ErrMissingRequiredField)
	case "incident_type":
		return fmt.Errorf("%q: %w", fe.Value(), e.ErrInvalidIncidentType)
	case "coordinates":
		return fmt.Errorf("%s: %w", fe.Field(), e.ErrInvalidCoordinates)
	default:
		return fmt.Errorf("%s failed %q: %w", fe.Field(), fe.Tag(), e.ErrInvalidInput)
	}
}
