package config

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validProviders = []string{"ollama", "openai"}
	validLogLevels = []string{"debug", "info", "warn", "warning", "error"}
	validRenders   = []string{RenderPlain, RenderWrap, RenderMarkdown}
)

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New()

	// report fields by their file key rather than the Go name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Duration); ok {
			return int64(d.Duration)
		}
		return nil
	}, Duration{})

	v.RegisterValidation("provider", oneOf(validProviders))
	v.RegisterValidation("log_level", oneOf(validLogLevels))
	v.RegisterValidation("render_mode", oneOf(validRenders))

	return &Validator{
		validate: v,
	}
}

// Validate validates a complete configuration
func (v *Validator) Validate(config *Config) error {
	if config.Version == "" {
		config.Version = "1.0"
	}

	if err := v.validate.Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				field := e.Namespace()
				if _, rest, ok := strings.Cut(field, "."); ok {
					field = rest
				}
				return ValidationError{
					Field:   field,
					Message: fmt.Sprintf("%s: %s", field, describe(e)),
					Value:   e.Value(),
				}
			}
		}
		return err
	}

	return nil
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("%q is not a valid URL", e.Value())
	case "provider":
		return fmt.Sprintf("unknown provider %q (want one of %s)", e.Value(), strings.Join(validProviders, ", "))
	case "log_level":
		return fmt.Sprintf("unknown log level %q (want one of %s)", e.Value(), strings.Join(validLogLevels, ", "))
	case "render_mode":
		return fmt.Sprintf("unknown render mode %q (want one of %s)", e.Value(), strings.Join(validRenders, ", "))
	}
	return fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value())
}

// oneOf builds a case-insensitive enum validator. Empty values pass and
// are filled by defaults.
func oneOf(valid []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := strings.ToLower(fl.Field().String())
		if value == "" {
			return true
		}
		return slices.Contains(valid, value)
	}
}
