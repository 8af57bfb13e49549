package config

import (
	"github.com/go-playground/validator/v10"
	"reflect"
	"strings"
)

// NewValidator reports field errors by their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
