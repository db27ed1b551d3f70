package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Note     string `json:"note" validate:"omitempty,notblank"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		form       loginForm
		wantFields map[string]string
	}{
		{
			name: "valid",
			form: loginForm{Email: "a@b.io", Password: "secret"},
		},
		{
			name: "missing fields use json names",
			form: loginForm{},
			wantFields: map[string]string{
				"email":    "email is a required field",
				"password": "password is a required field",
			},
		},
		{
			name:       "bad email",
			form:       loginForm{Email: "nope", Password: "x"},
			wantFields: map[string]string{"email": "email must be a valid email address"},
		},
		{
			name:       "blank note",
			form:       loginForm{Email: "a@b.io", Password: "x", Note: "   "},
			wantFields: map[string]string{"note": "note cannot be blank"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.form)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			verr, ok := err.(*Error)
			require.True(t, ok)
			assert.Len(t, verr.Fields, len(tt.wantFields))
			for field, msg := range tt.wantFields {
				assert.Equal(t, msg, verr.Field(field))
			}
		})
	}
}
