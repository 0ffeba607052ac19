package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs the struct's validate tags.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}

// fieldErrors turns validator errors into "field: reason" pairs.
func fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "min":
			out[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			out[field] = fmt.Sprintf("must be at most %s", fe.Param())
		default:
			out[field] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return out
}
