// Package validation holds the process-wide struct validator used for
// configuration and request bodies.
package validation

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

// Validator returns the shared validator. Field names in errors are taken
// from the json tag, then the koanf tag, then the Go field name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)
	})
	return validate
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "koanf"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// FieldError describes one failed rule.
type FieldError struct {
	// Namespace is the dotted path from the root struct, e.g. "rate_limit.limit".
	Namespace string
	Field     string
	Tag       string
	Param     string
}

func (e FieldError) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s", e.Namespace, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s: failed %s", e.Namespace, e.Tag)
}

// Error aggregates field errors from one Struct call.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Struct validates s. It returns nil or an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		ns := fe.Namespace()
		// Drop the root type name.
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		out.Fields[i] = FieldError{
			Namespace: ns,
			Field:     fe.Field(),
			Tag:       fe.Tag(),
			Param:     fe.Param(),
		}
	}
	return out
}
