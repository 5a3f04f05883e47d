package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stridewear/api/internal/domain"
)

// RequestValidator plugs go-playground/validator into echo's Validate hook.
// Failures come back as domain errors so they render through the shared
// response envelope instead of echo's default error body, and never expose
// struct internals to the client.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Invalid("request.validate", "invalid request body")
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return domain.Invalid("request.validate", "invalid request fields: "+strings.Join(fields, ", "))
}
