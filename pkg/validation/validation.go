// Package validation holds the character policy for tag names.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxTagLength is the longest tag name accepted, counted in runes.
const DefaultMaxTagLength = 50

// NameValidator decides whether a tag name may be stored.
type NameValidator interface {
	IsValidName(name string) bool
}

// TagNameValidator enforces: non-empty, no surrounding whitespace, no control
// characters, at most MaxLength runes.
type TagNameValidator struct {
	validate *validator.Validate
	rules    string
}

func NewTagNameValidator(maxLength int) *TagNameValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxTagLength
	}

	validate := validator.New()
	_ = validate.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == strings.TrimSpace(value)
	})
	_ = validate.RegisterValidation("nocontrol", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
	})

	return &TagNameValidator{
		validate: validate,
		rules:    fmt.Sprintf("required,max=%d,trimmed,nocontrol", maxLength),
	}
}

func (v *TagNameValidator) IsValidName(name string) bool {
	return v.Check(name) == nil
}

// Check reports which rule rejected the name.
func (v *TagNameValidator) Check(name string) error {
	err := v.validate.Var(name, v.rules)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		switch failures[0].Tag() {
		case "required":
			return fmt.Errorf("tag name must not be empty")
		case "max":
			return fmt.Errorf("tag name must be at most %s characters", failures[0].Param())
		case "trimmed":
			return fmt.Errorf("tag name must not start or end with whitespace")
		case "nocontrol":
			return fmt.Errorf("tag name must not contain control characters")
		}
	}
	return fmt.Errorf("invalid tag name: %w", err)
}
