package validator

import (
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"

	"trafine/internal/domain"
)

func RegisterCustomValidations(validate *validator.Validate) {
	validate.RegisterValidation("coordinates", validateCoordinates)
	validate.RegisterValidation("incident_type", validateIncidentType)
	validate.RegisterValidation("severity", validateSeverity)
}

// validateCoordinates accepts a [lon, lat] pair.
func validateCoordinates(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.Slice || f.Len() != 2 {
		return false
	}
	lon, lat := f.Index(0).Float(), f.Index(1).Float()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func validateIncidentType(fl validator.FieldLevel) bool {
	return domain.IncidentType(fl.Field().String()).Valid()
}

func validateSeverity(fl validator.FieldLevel) bool {
	return domain.Severity(fl.Field().String()).Valid()
}
