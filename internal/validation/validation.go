// Package validation checks request payloads against struct tag schemas and
// reports every failing field at once.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/smallbiznis/mywill/internal/errs"
)

const DateLayout = "2006-01-02"

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("date_or_datetime", func(fl validator.FieldLevel) bool {
			_, err := ParseDateOrTime(fl.Field().String())
			return err == nil
		})
		instance = v
	})
	return instance
}

// Check validates s and returns the collected field errors. The result is never
// nil so callers can append cross-field failures before calling Err.
func Check(s any) *errs.ValidationErrors {
	out := &errs.ValidationErrors{}
	err := validate().Struct(s)
	if err == nil {
		return out
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add("body", "invalid", err.Error())
		return out
	}
	for _, fe := range fieldErrs {
		out.Add(fieldPath(fe), fe.Tag(), message(fe))
	}
	return out
}

// Struct is Check(s).Err().
func Struct(s any) error {
	return Check(s).Err()
}

func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// ParseDateOrTime accepts RFC3339 or a bare date, returning UTC.
func ParseDateOrTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return ParseDate(raw)
}

// fieldPath drops the top-level struct name: "CreateClientRequest.first_name" -> "first_name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "date":
		return field + " must be a date in YYYY-MM-DD format"
	case "date_or_datetime":
		return field + " must be an RFC3339 timestamp or YYYY-MM-DD date"
	default:
		return field + " is invalid"
	}
}
