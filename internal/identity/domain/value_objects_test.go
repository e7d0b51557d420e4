package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/internal/identity/domain"
)

func TestNewEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		want    string
	}{
		{"valid email", "user@example.com", nil, "user@example.com"},
		{"uppercase", "USER@EXAMPLE.COM", nil, "user@example.com"},
		{"with spaces", "  user@example.com  ", nil, "user@example.com"},
		{"with plus", "user+tag@example.com", nil, "user+tag@example.com"},
		{"empty", "", domain.ErrInvalidEmail, ""},
		{"no @", "userexample.com", domain.ErrInvalidEmail, ""},
		{"no domain", "user@", domain.ErrInvalidEmail, ""},
		{"multiple @", "user@@example.com", domain.ErrInvalidEmail, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := domain.NewEmail(tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, email.String())
			}
		})
	}
}

func TestEmail_DomainAndEquals(t *testing.T) {
	email1, _ := domain.NewEmail("user@example.com")
	email2, _ := domain.NewEmail("USER@EXAMPLE.COM")
	email3, _ := domain.NewEmail("other@example.com")

	assert.Equal(t, "example.com", email1.Domain())
	assert.True(t, email1.Equals(email2))
	assert.False(t, email1.Equals(email3))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, domain.ValidatePassword("short"), domain.ErrPasswordTooShort)
	assert.ErrorIs(t, domain.ValidatePassword(strings.Repeat("a", 73)), domain.ErrPasswordTooLong)
	assert.NoError(t, domain.ValidatePassword("correct horse"))
}
