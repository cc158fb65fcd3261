package service

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/models"
)

// NewValidator returns a validator carrying the clock and weekday tags used by session requests.
// Field errors are reported under their JSON names.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	if err := validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.ParseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register clock validation: %w", err)
	}
	if err := validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseDayOfWeek(fl.Field().String())
		return ok
	}); err != nil {
		return nil, fmt.Errorf("register weekday validation: %w", err)
	}
	return validate, nil
}

func defaultValidator(logger *zap.Logger) *validator.Validate {
	validate, err := NewValidator()
	if err != nil {
		logger.Error("build request validator", zap.Error(err))
		return validator.New()
	}
	return validate
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}
