package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPrivate(t *testing.T) {
	assert.True(t, IsPrivate(ErrProfileIsPrivate))
	assert.True(t, IsPrivate(NewPrivateProfile("nasa")))
	assert.True(t, IsPrivate(fmt.Errorf("analyze: %w", NewPrivateProfile("nasa"))))
	assert.False(t, IsPrivate(ErrProfilesAreIdentical))
	assert.False(t, IsPrivate(errors.New("profile is private")))
	assert.False(t, IsPrivate(nil))
}

func TestErrorMessage(t *testing.T) {
	err := NewPrivateProfile("nasa")
	assert.Equal(t, `private error (code 403): profile "nasa" is private`, err.Error())
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{0, ErrorTypeNetwork},
		{200, ""},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{418, ErrorTypeUnknown},
		{502, ErrorTypeServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, FromStatusCode(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypePrivate))
}
