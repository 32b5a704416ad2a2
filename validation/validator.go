// Package validation wraps go-playground/validator with the taxonomy tags
// used on recipe documents and request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"flavornet/taxonomy"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error aggregates every failed field of a struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Get returns the shared validator, registering custom tags on first use.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
		mustRegister("kebab", func(fl validator.FieldLevel) bool {
			return taxonomy.IsKebab(fl.Field().String())
		})
		for _, v := range taxonomy.Vocabularies() {
			vocab := v
			mustRegister(vocab.Name, func(fl validator.FieldLevel) bool {
				return vocab.Contains(fl.Field().String())
			})
		}
	})
	return validate
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// ValidateStruct returns nil or an *Error describing every failed field.
func ValidateStruct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Message: translate(fe),
		}
	}
	return out
}

var messages = map[string]string{
	"required":  "%s is required",
	"email":     "%s must be a valid email address",
	"url":       "%s must be a valid URL",
	"kebab":     "%s must be kebab-case (lower-case letters, digits and single hyphens)",
	"dietary":   "%s is not a known dietary tag",
	"allergen":  "%s is not a known allergen tag",
	"flavour":   "%s is not a known flavour tag",
	"technique": "%s is not a known technique tag",
	"course":    "%s is not a known course",
}

var messagesWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messagesWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	var unit string
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = " items"
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// jsonName reports fields by their JSON key so messages match the request
// body the client sent.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
