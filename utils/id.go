package utils

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const handleAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewBookingID returns a random UUID for a booking record.
func NewBookingID() string {
	return uuid.NewString()
}

// NewHandle returns a short URL-safe id with the given prefix, e.g. "sbx_k3j9...".
func NewHandle(prefix string) string {
	id, err := gonanoid.Generate(handleAlphabet, 16)
	if err != nil {
		// Generate only fails on an invalid alphabet or size.
		return prefix + uuid.NewString()
	}
	return prefix + id
}
