package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// MaxContentLength bounds message and notification bodies, in characters.
const MaxContentLength = 2000

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of p and folds any failures into a
// single validation error.
func validateStruct(v *validator.Validate, p any) error {
	err := v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newInternalError("validate", err)
	}

	fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		// drop the struct name, keep the json path
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	})

	return newValidationError(strings.Join(fields, "; "))
}

// now is the timestamp source for new rows; Postgres keeps microseconds.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
