package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "init",
			err:      &InitError{Dir: "/tmp/c", Err: cause},
			expected: "initialize cache root /tmp/c: boom",
		},
		{
			name:     "read with path",
			err:      &ReadError{Key: "abc", Path: "/tmp/c/abc.json", Err: cause},
			expected: `read cache record "abc" (/tmp/c/abc.json): boom`,
		},
		{
			name:     "read without path",
			err:      &ReadError{Key: "abc", Err: cause},
			expected: `read cache record "abc": boom`,
		},
		{
			name:     "write with path",
			err:      &WriteError{Key: "abc", Path: "/tmp/c/abc.json", Err: cause},
			expected: `write cache record "abc" (/tmp/c/abc.json): boom`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	readErr := fmt.Errorf("lookup: %w", &ReadError{Key: "k", Err: fs.ErrPermission})

	assert.True(t, IsReadError(readErr))
	assert.False(t, IsWriteError(readErr))
	assert.False(t, IsInitError(readErr))
	assert.False(t, IsCorrupt(readErr))

	corrupt := &ReadError{Key: "k", Err: fmt.Errorf("decode: %w", ErrCorrupt)}
	assert.True(t, IsCorrupt(corrupt))
	assert.True(t, corrupt.Corrupt())
	assert.Equal(t, ErrorTypeRead, corrupt.Type())
}
