package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report json names so errors line up with what the form sent.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// ValidateFields checks a field set against its struct tags and returns the
// first violation as a ValidationError.
func ValidateFields(f Fields) error {
	if f == nil {
		return NewValidationError("fields", "missing")
	}
	err := fieldValidator().Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(fe.Field(), describe(fe))
	}
	return NewValidationError("fields", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date formatted as %s", fe.Param())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
