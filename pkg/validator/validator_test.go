package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password,omitempty" validate:"required,min=8"`
	Difficulty string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Tags       []string `json:"tags" validate:"omitempty,dive,min=1"`
	Untagged   string   `validate:"omitempty,max=3"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(signupForm{
		Email:      "alice@example.com",
		Password:   "SecurePass123",
		Difficulty: "medium",
		Tags:       []string{"algebra"},
	})
	assert.NoError(t, err)
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	// Field errors are keyed by json tag name, not Go field name, so they
	// line up with the request body the caller sent.
	err := Validate(signupForm{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.NotContains(t, fields, "Email")
	assert.NotContains(t, fields, "Password")
}

func TestValidate_UntaggedFieldKeepsGoName(t *testing.T) {
	err := Validate(signupForm{
		Email:    "alice@example.com",
		Password: "SecurePass123",
		Untagged: "toolong",
	})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, valErr.Fields(), "Untagged")
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(signupForm{
		Email:      "alice@example.com",
		Password:   "SecurePass123",
		Difficulty: "impossible",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}
