package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// 11 digits starting with 01, after spaces and dashes are removed
var bdPhonePattern = regexp.MustCompile(`^01[0-9]{9}$`)

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// registration only fails for an empty tag or a nil func
	_ = v.RegisterValidation("bdphone", func(fl validator.FieldLevel) bool {
		return bdPhonePattern.MatchString(fl.Field().String())
	})

	return v
}

func validateContact(v *validator.Validate, contact *domain.Contact) error {
	err := v.Struct(contact)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate contact: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ContactError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "bdphone":
		return "must be 11 digits starting with 01"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
