package forms

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterForm(t *testing.T) {
	tests := []struct {
		name string
		form RegisterForm
		want string
	}{
		{"valid", RegisterForm{Email: "a@b.co", Password: "longenough", ConfirmPassword: "longenough"}, ""},
		{"bad email", RegisterForm{Email: "nope", Password: "longenough", ConfirmPassword: "longenough"}, "Enter a valid email address"},
		{"short password", RegisterForm{Email: "a@b.co", Password: "short", ConfirmPassword: "short"}, MsgPasswordTooShort},
		{"mismatch", RegisterForm{Email: "a@b.co", Password: "longenough", ConfirmPassword: "different"}, MsgPasswordMismatch},
		{"missing email", RegisterForm{Password: "longenough", ConfirmPassword: "longenough"}, "Email is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.form)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.want)
		})
	}
}

func TestPasswordChangeForm(t *testing.T) {
	assert.EqualError(t, Validate(PasswordChangeForm{NewPassword: "longenough", ConfirmPassword: "longenough"}),
		"Old password is required")
	assert.EqualError(t, Validate(PasswordChangeForm{OldPassword: "x", NewPassword: "1234567", ConfirmPassword: "1234567"}),
		MsgPasswordTooShort)
	assert.EqualError(t, Validate(PasswordChangeForm{OldPassword: "x", NewPassword: "12345678", ConfirmPassword: "12345679"}),
		MsgPasswordMismatch)
	assert.NoError(t, Validate(PasswordChangeForm{OldPassword: "x", NewPassword: "12345678", ConfirmPassword: "12345678"}))
}

func TestLoginForm(t *testing.T) {
	assert.NoError(t, Validate(LoginForm{Email: "a@b.co", Password: "x"}))
	assert.EqualError(t, Validate(LoginForm{Email: "a@b.co"}), "Password is required")
}

func TestTaskForm(t *testing.T) {
	assert.NoError(t, Validate(TaskForm{Title: "Plan week"}))
	assert.NoError(t, Validate(TaskForm{Title: "Plan week", Priority: "HIGH", DueDate: "2025-03-01"}))
	assert.EqualError(t, Validate(TaskForm{}), "Title is required")
	assert.EqualError(t, Validate(TaskForm{Title: "x", Priority: "SOON"}), "Priority must be one of: LOW, MEDIUM, HIGH, URGENT")
	assert.EqualError(t, Validate(TaskForm{Title: "x", DueDate: "03/01/2025"}), "Dates must look like YYYY-MM-DD")
}

func TestOTPAndPhone(t *testing.T) {
	assert.NoError(t, Validate(OTPForm{Code: "123456"}))
	assert.Error(t, Validate(OTPForm{Code: "12"}))
	assert.Error(t, Validate(OTPForm{Code: "12ab56"}))

	assert.NoError(t, Validate(PhoneForm{Phone: "+14155550123"}))
	assert.Error(t, Validate(PhoneForm{Phone: "555"}))
}

func TestIsInvalid(t *testing.T) {
	err := Validate(LoginForm{})
	assert.True(t, IsInvalid(err))
	assert.True(t, IsInvalid(fmt.Errorf("login: %w", err)))
	assert.False(t, IsInvalid(errors.New("boom")))
	assert.False(t, IsInvalid(nil))
}
