// Package validation checks parameter structs with go-playground/validator and
// reports failures as a FieldsError keyed by field name.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cleared-dev/ledger/internal/model"
)

// FieldsError reports invalid parameter fields.
type FieldsError struct {
	Fields map[string]string // field -> message
}

func (e *FieldsError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, name := range names {
		msgs[i] = e.Fields[name]
	}
	return "invalid fields: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("accounttype", func(fl validator.FieldLevel) bool {
		return model.AccountType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("entrykind", func(fl validator.FieldLevel) bool {
		return model.EntryKind(fl.Field().String()).Valid()
	})
	return v
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating %T: %w", s, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = message(fe)
	}
	return &FieldsError{Fields: fields}
}

func fieldName(fe validator.FieldError) string {
	field := fe.Field()
	if len(field) > 0 {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	return field
}

func message(fe validator.FieldError) string {
	field := fieldName(fe)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, strings.ToLower(fe.Param()[:1])+fe.Param()[1:])
	case "accounttype":
		return fmt.Sprintf("%s must be one of: asset liability equity revenue expense", field)
	case "entrykind":
		return fmt.Sprintf("%s must be one of: GJ CR CD", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
