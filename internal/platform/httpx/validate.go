package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/shared"
)

// ValidationError carries per-field messages keyed by JSON field path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

// Unwrap lets errors.Is(err, shared.ErrValidation) match.
func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

// Validator wraps go-playground/validator with JSON field naming.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator that reports JSON tag names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// Money fields validate as numbers so gt/gte/lte tags apply to them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return &Validator{v: v}
}

// Struct validates s and converts failures into a *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

// Field wraps a single field failure raised by service-level checks.
func Field(name, msg string) error {
	return &ValidationError{Fields: map[string]string{name: msg}}
}

func fieldPath(ns string) string {
	// Drop the root struct name.
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt", "gte", "lt", "lte", "min", "max":
		return "must satisfy " + fe.Tag() + "=" + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// Decode reads the JSON body into target and validates it.
func (v *Validator) Decode(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return err
	}
	return v.Struct(target)
}
