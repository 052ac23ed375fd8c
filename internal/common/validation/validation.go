package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/models"
)

// Validator wraps go-playground/validator with the CRM's custom tags
type Validator struct {
	validator *validator.Validate
}

// FieldError is one failed rule, shaped for API responses
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// New creates a validator that reports JSON field names
func New() *Validator {
	v := validator.New()
	registerValidators(v)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validator: v}
}

// Struct validates s and returns a single ValidationError naming every
// failed field, with the field list attached under "fields"
func (v *Validator) Struct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	fields := v.fieldErrors(err)
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Message
	}

	msg := messages[0]
	if len(messages) > 1 {
		msg = fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
	}
	return errors.ValidationError(msg).WithContext("fields", fields)
}

// Var validates a single value against tag
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validator.Var(field, tag); err != nil {
		fields := v.fieldErrors(err)
		return errors.ValidationError(fields[0].Message)
	}
	return nil
}

func (v *Validator) fieldErrors(err error) []FieldError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: formatFieldError(fe),
			Param:   fe.Param(),
		})
	}
	return out
}

func formatFieldError(err validator.FieldError) string {
	field := err.Field()
	if field == "" {
		field = "value"
	}
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", field)
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	case "e164":
		return fmt.Sprintf("field '%s' must be an E.164 phone number such as +14155550100", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	case "provider":
		return fmt.Sprintf("field '%s' must be a supported provider (google, ringcentral)", field)
	case "owner_key":
		return fmt.Sprintf("field '%s' must be an owner key such as user:42 or default", field)
	case "cron_expression":
		return fmt.Sprintf("field '%s' must be a valid cron expression", field)
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

func registerValidators(v *validator.Validate) {
	v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		_, err := models.ParseProvider(fl.Field().String())
		return err == nil
	})

	v.RegisterValidation("owner_key", func(fl validator.FieldLevel) bool {
		_, err := models.ParseOwnerKey(fl.Field().String())
		return err == nil
	})

	// Accepts an optional seconds field and @every descriptors
	v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		_, err := parser.Parse(fl.Field().String())
		return err == nil
	})
}
