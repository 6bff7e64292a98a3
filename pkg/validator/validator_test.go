package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required_without=Email"`
	Password string `validate:"required,min=8"`
}

func TestValidateOK(t *testing.T) {
	err := Validate(sampleRequest{
		Email:    "alice@example.com",
		Password: "s3cretpass",
	})
	assert.NoError(t, err)
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	err := Validate(sampleRequest{
		Email:    "not-an-email",
		Password: "short",
	})

	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	fields := vErr.Fields()
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at least 8 characters", fields["Password"])
}
