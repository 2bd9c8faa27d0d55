package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	Required int `yaml:"required" validate:"gt=0"`
}

type sample struct {
	UserId int64 `json:"user_id" validate:"required"`
	Inner  inner `yaml:"inner"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(&sample{UserId: 1, Inner: inner{Required: 5}}))

	err := Struct(&sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id required")
	assert.Contains(t, err.Error(), "inner.required gt")
}

func TestStruct_NotAStruct(t *testing.T) {
	assert.EqualError(t, Struct(nil), "is nil")
	assert.EqualError(t, Struct(42), "not a struct")
}
