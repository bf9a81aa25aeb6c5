package commands

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "snapgram-sync/pkg/errors"
)

// SelfValidator is implemented by inputs with rules struct tags cannot express.
type SelfValidator interface {
	Validate() error
}

// Validator checks mutation inputs before any backend call is made.
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance. It panics if the
// custom rules cannot be registered.
func GetValidator() *Validator {
	once.Do(func() {
		v, err := NewValidator()
		if err != nil {
			panic(fmt.Sprintf("failed to create validator: %v", err))
		}
		instance = v
	})
	return instance
}

// NewValidator creates a validator that reports fields by their json names.
// Fields tagged notblank reject whitespace-only strings.
func NewValidator() (*Validator, error) {
	v := &Validator{validate: validator.New()}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.validate.RegisterValidation("notblank", notBlank); err != nil {
		return nil, fmt.Errorf("register notblank: %w", err)
	}

	return v, nil
}

// Validate runs struct tags, then the input's own rules. Every failure is an
// InvalidArgument error.
func (v *Validator) Validate(in any) error {
	if err := v.validate.Struct(in); err != nil {
		return formatValidationError(err)
	}
	if sv, ok := in.(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			return apperrors.NewInvalidArgument(err.Error())
		}
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInvalidArgument(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), errorMessage(e.Tag(), e.Param())))
	}
	return apperrors.NewInvalidArgument(strings.Join(msgs, "; "))
}

func errorMessage(tag, param string) string {
	switch tag {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", param)
	default:
		return fmt.Sprintf("failed %s validation", tag)
	}
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()

	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return field.Len() > 0
	default:
		return !field.IsZero()
	}
}
