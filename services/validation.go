package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var sanctionIDPattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{6}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("sanction_id", func(fl validator.FieldLevel) bool {
		return sanctionIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateSanctionID accepts the XX-XX-XXXXXX form issued by the sanctioning body.
func ValidateSanctionID(id string) error {
	if err := validate.Var(id, "required,sanction_id"); err != nil {
		return ErrSanctionIDInvalid
	}
	return nil
}

// validateInput runs the struct tags of payload. A malformed sanction id on
// an otherwise valid payload maps to ErrSanctionIDInvalid.
func validateInput(ctx context.Context, payload interface{}) error {
	err := validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	sanctionOnly := true
	for _, fe := range fieldErrs {
		if fe.Tag() != "sanction_id" {
			sanctionOnly = false
		}
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	if sanctionOnly {
		return ErrSanctionIDInvalid
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(problems, ", "))
}
