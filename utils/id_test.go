package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingID(t *testing.T) {
	id := NewBookingID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewBookingID())
}

func TestNewHandle(t *testing.T) {
	h := NewHandle("sbx_cs_")
	assert.True(t, strings.HasPrefix(h, "sbx_cs_"))
	assert.Len(t, h, len("sbx_cs_")+16)
	assert.Equal(t, strings.Trim(h[len("sbx_cs_"):], handleAlphabet), "")
}
