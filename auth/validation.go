package auth

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

// RegistrationInput is the submitted registration form.
type RegistrationInput struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"min=6,hashable"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"nonblank"`
}

// fieldMessages maps a form field and failed rule to the message shown to the user.
// A field with a single message uses the "" rule.
var fieldMessages = map[string]map[string]string{
	"email":           {"": MsgInvalidEmail},
	"confirmPassword": {"": MsgPasswordsDontMatch},
	"password": {
		"min":      MsgPasswordTooShort,
		"nonblank": MsgPasswordRequired,
		"hashable": MsgPasswordTooLong,
	},
}

// Validator applies the form rules. It never touches a store.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("form"); name != "" {
			return name
		}
		return fld.Name
	})
	// Whitespace-only passwords count as missing. The password itself is never trimmed.
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// bcrypt refuses passwords longer than MaxPasswordBytes, counted in bytes.
	_ = v.RegisterValidation("hashable", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= users.MaxPasswordBytes
	})
	return &Validator{validate: v}
}

// ValidateRegistration normalises the email and checks the registration rules.
// Field errors are returned in form order; an empty slice means the input is valid.
func (v *Validator) ValidateRegistration(in RegistrationInput) (RegistrationInput, []apperrors.FieldError) {
	in.Email = users.NormalizeEmail(in.Email)
	return in, v.check(in)
}

// ValidateLogin normalises the email and checks the login rules.
func (v *Validator) ValidateLogin(in LoginInput) (LoginInput, []apperrors.FieldError) {
	in.Email = users.NormalizeEmail(in.Email)
	return in, v.check(in)
}

func (v *Validator) check(in any) []apperrors.FieldError {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !apperrors.As(err, &verrs) {
		return []apperrors.FieldError{{Field: "form", Message: err.Error()}}
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe.Field(), fe.Tag()),
		})
	}
	return fields
}

func messageFor(field, tag string) string {
	msgs := fieldMessages[field]
	if msg, ok := msgs[tag]; ok {
		return msg
	}
	if msg, ok := msgs[""]; ok {
		return msg
	}
	return field + " is invalid"
}
