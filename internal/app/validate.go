package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"vacation_deals/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report payload (json) field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every failed field of a submission.
type ValidationError struct {
	Fields map[string]string // payload path -> reason
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+" "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(path, reason string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[path] = reason
}

// ValidateSubmission builds the payload for d and checks the field rules
// enforced at submission time (title, primary destination, per price
// country/hotel/price/dates). Date ordering errors carry ErrInvalidRange.
func ValidateSubmission(d *domain.Deal) (domain.DealPayload, error) {
	p := domain.ToPayload(d)
	verr := &ValidationError{}

	if err := validate.Struct(p); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return p, err
		}
		for _, fe := range ves {
			verr.add(fieldPath(fe.Namespace()), reason(fe))
		}
	}

	for i, e := range d.PriceEntries {
		if e.StartDate.IsZero() || e.EndDate.IsZero() {
			continue // already reported as required
		}
		if _, err := domain.ValidateDateRange(e, 0); err != nil {
			return p, fmt.Errorf("prices[%d]: %w", i, err)
		}
	}

	if len(verr.Fields) > 0 {
		return p, verr
	}
	return p, nil
}

// fieldPath strips the root struct name: "DealPayload.prices[0].hotel" -> "prices[0].hotel".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag()
}
