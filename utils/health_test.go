package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckHealth(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	status := CheckHealth(context.Background(), map[string]Pinger{"mongo": up, "redis": up})
	assert.True(t, status.Healthy)
	assert.Equal(t, map[string]bool{"mongo": true, "redis": true}, status.Services)

	status = CheckHealth(context.Background(), map[string]Pinger{"mongo": up, "redis": down})
	assert.False(t, status.Healthy)
	assert.False(t, status.Services["redis"])
	assert.Equal(t, status, GetHealthStatus())
}
