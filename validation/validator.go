package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/kbukum/recoverykit/errors"
)

// Validator accumulates field errors for hand-checked request input such
// as path parameters. Struct config goes through Validate instead.
type Validator struct {
	errors []FieldError
}

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []FieldError { return v.errors }

// Validate folds the collected errors into one validation AppError, or
// returns nil when every check passed.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	var b strings.Builder
	for i, e := range v.errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Field)
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return errors.Validation(b.String()).WithDetail("fields", v.errors)
}

// Required fails on an empty or all-blank value.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	if len(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be %d characters or less", maxLen))
	}
	return v
}

var patterns sync.Map // string -> *regexp.Regexp

// Pattern fails when a non-empty value does not match pattern. Empty
// values are left to Required. An invalid pattern always fails.
func (v *Validator) Pattern(field, value, pattern string) *Validator {
	if value == "" {
		return v
	}
	re, err := compiled(pattern)
	if err != nil || !re.MatchString(value) {
		v.AddError(field, "does not match required format")
	}
	return v
}

func compiled(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}
