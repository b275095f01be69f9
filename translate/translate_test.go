package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(SetLanguage("en-US"))
	assert.Equal("label FOO missing", From("label %v missing", "FOO"))
	assert.Equal("plain", From("plain"))
}

func TestSetLanguage(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(SetLanguage(""))
	assert.Error(SetLanguage("not a language tag!"))
	assert.NoError(SetLanguage("en"))
}
