package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks installation and panel bounds.
func (i *Installation) Validate() error {
	if err := Validator().Struct(i); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Index: -1, Reason: err.Error(), Err: err}
	}
	fe := fieldErrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Installation.")
	reason := fmt.Sprintf("failed %q constraint", fe.Tag())
	if fe.Param() != "" {
		reason = fmt.Sprintf("failed %q constraint (%s)", fe.Tag(), fe.Param())
	}
	return &ValidationError{Index: -1, Field: field, Reason: reason, Err: err}
}
