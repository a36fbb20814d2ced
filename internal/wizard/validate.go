package wizard

import (
	"regexp"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/go-playground/validator/v10"
)

// emailPattern is deliberately loose: something@something.something with no
// whitespace and a single "@". It is not RFC 5322.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "looseemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "otp", func(fl validator.FieldLevel) bool {
		return isOtp(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func isOtp(code string) bool {
	if len(code) != domain.OTPLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func IsValidEmail(text string) bool {
	return validate.Var(text, "looseemail") == nil
}

func IsValidOtp(code string) bool {
	return validate.Var(code, "otp") == nil
}

// Validate checks a form struct against its validate tags. Besides the
// built-in tags it understands "looseemail" and "otp".
func Validate(form any) error {
	return validate.Struct(form)
}

type LoginForm struct {
	Email string `validate:"looseemail"`
}

// RegisterForm only checks the email; name and mobile go to the server as typed.
type RegisterForm struct {
	Name   string
	Email  string `validate:"looseemail"`
	Mobile string
}

type VerifyForm struct {
	Email string `validate:"required"`
	Code  string `validate:"otp"`
}
