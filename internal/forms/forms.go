// Package forms validates user input before it is sent to the API.
package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"myworld-planner/internal/model"
)

const (
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgPasswordMismatch = "Passwords do not match"
)

var (
	otpPattern   = regexp.MustCompile(`^[0-9]{4,8}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
			return otpPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(model.DateLayout, fl.Field().String())
			return err == nil
		})
	})
	return validate
}

type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type RegisterForm struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

type PasswordChangeForm struct {
	OldPassword     string `validate:"required"`
	NewPassword     string `validate:"required,min=8"`
	ConfirmPassword string `validate:"eqfield=NewPassword"`
}

type TaskForm struct {
	Title    string `validate:"required,max=200"`
	Priority string `validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate  string `validate:"omitempty,date"`
}

// DateRangeForm bounds task listings and instance expansion.
type DateRangeForm struct {
	From string `validate:"omitempty,date"`
	To   string `validate:"omitempty,date"`
}

type OTPForm struct {
	Code string `validate:"otp"`
}

type PhoneForm struct {
	Phone string `validate:"phone"`
}

// Error is a validation failure worded for the user.
type Error string

func (e Error) Error() string { return string(e) }

// IsInvalid reports whether err came from form validation.
func IsInvalid(err error) bool {
	var fe Error
	return errors.As(err, &fe)
}

// Validate checks a form and returns the first failure as a readable message.
func Validate(form any) error {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return Error(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", humanize(field))
	case "email":
		return "Enter a valid email address"
	case "min":
		if strings.HasSuffix(field, "Password") {
			return MsgPasswordTooShort
		}
		return fmt.Sprintf("%s must be at least %s characters", humanize(field), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", humanize(field), fe.Param())
	case "eqfield":
		return MsgPasswordMismatch
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", humanize(field), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "date":
		return "Dates must look like YYYY-MM-DD"
	case "otp":
		return "The code must be 4 to 8 digits"
	case "phone":
		return "Enter the phone number with country code, for example +14155550123"
	default:
		return fmt.Sprintf("%s is invalid", humanize(field))
	}
}

func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
