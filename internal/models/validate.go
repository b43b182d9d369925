package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("notblank", notBlank); err != nil {
		panic("models: register notblank: " + err.Error())
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate checks struct tags on v.
func Validate(v any) error {
	return validate.Struct(v)
}
