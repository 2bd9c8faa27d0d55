package sl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecret(t *testing.T) {
	assert.Equal(t, "12345***", Secret("token", "1234567890").Value.String())
	assert.Equal(t, "***", Secret("token", "abc").Value.String())
	assert.Equal(t, "?", Secret("token", "").Value.String())
}

func TestErrAndModule(t *testing.T) {
	attr := Err(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	mod := Module("gate")
	assert.Equal(t, "mod", mod.Key)
	assert.Equal(t, "gate", mod.Value.String())

	assert.Equal(t, int64(42), User(42).Value.Int64())
}
