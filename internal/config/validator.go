package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce     sync.Once
	validatorInstance *validator.Validate
)

// Validator returns the shared validator with the project's custom tags registered.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = newValidator()
	})
	return validatorInstance
}

func newValidator() *validator.Validate {
	validate := validator.New()

	// General file path: any non-empty string, emptiness is handled by omitempty.
	_ = validate.RegisterValidation("filepath", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "trace", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("granularity", func(fl validator.FieldLevel) bool {
		switch models.Granularity(fl.Field().String()) {
		case "", models.GranularityLine:
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("historybackend", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "sqlite", "parquet", "none":
			return true
		default:
			return false
		}
	})

	return validate
}

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("configuration validation error: config is nil")
	}
	if err := Validator().Struct(cfg); err != nil {
		return formatValidationError("configuration", err)
	}
	return nil
}

// ValidateComparisonConfig checks a per-run comparison config.
func ValidateComparisonConfig(cfg models.ComparisonConfig) error {
	if err := Validator().Struct(cfg); err != nil {
		return formatValidationError("comparison config", err)
	}
	return nil
}

// formatValidationError turns validator field errors into one
// *common.ConfigurationError per field, combined into a single error.
func formatValidationError(subject string, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%s validation error: %w", subject, err)
	}

	var collector common.ErrorCollector
	for _, e := range errs {
		reason := fmt.Sprintf("rule '%s'", e.Tag())
		if e.Param() != "" {
			reason += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" {
			reason += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		collector.Add(common.NewConfigurationError(subject, e.Namespace(), reason))
	}
	if !collector.HasErrors() {
		return fmt.Errorf("%s validation error: %w", subject, err)
	}
	return collector.Error()
}
