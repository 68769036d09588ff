package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type resetForm struct {
	NewPassword     string `json:"newPassword" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type otpForm struct {
	Code string `json:"code" validate:"required,len=4"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&signupForm{
		Username: "someone",
		Email:    "someone@example.com",
		Password: "Password1",
	})
	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(&signupForm{Username: "someone", Email: "not-an-email", Password: "Password1"})
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, ve.Errors, "email")
}

func TestValidate_PasswordRule(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "Password1", true},
		{"too short", "Pass1", false},
		{"no uppercase", "password1", false},
		{"no lowercase", "PASSWORD1", false},
		{"no digit", "Passwords", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&signupForm{
				Username: "someone",
				Email:    "someone@example.com",
				Password: tt.password,
			})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				ve, ok := err.(*ValidationError)
				require.True(t, ok)
				assert.Contains(t, ve.Errors, "password")
			}
		})
	}
}

func TestValidate_ConfirmPasswordMustMatch(t *testing.T) {
	v := New()

	err := v.Validate(&resetForm{NewPassword: "Password1", ConfirmPassword: "Password2"})
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, ve.Errors, "confirmPassword")

	assert.NoError(t, v.Validate(&resetForm{NewPassword: "Password1", ConfirmPassword: "Password1"}))
}

func TestValidate_OtpCodeLength(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&otpForm{Code: "1234"}))

	err := v.Validate(&otpForm{Code: "123"})
	require.Error(t, err)

	err = v.Validate(&otpForm{Code: ""})
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.NotEmpty(t, ve.First)
}
