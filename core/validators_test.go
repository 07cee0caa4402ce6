package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_alphaNumDot(t *testing.T) {
	validate, translator := NewValidator()

	type account struct {
		Username string `json:"username" validate:"required,alphanumdot"`
	}

	tests := []struct {
		uname   string
		wantErr bool
	}{
		{uname: "john.doe"},
		{uname: "jane_smith2"},
		{uname: "jane smith", wantErr: true},
		{uname: "jane-smith", wantErr: true},
		{uname: "j@ne", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.uname, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = validate.Struct(account{Username: tc.uname}) })
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validation errors, got %v", err)
			assert.Equal(t, "username", verrs[0].Field())
			assert.Equal(t, alphaNumDotText, verrs[0].Translate(translator))
		})
	}
}
