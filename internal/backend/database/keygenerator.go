package database

import (
	"fmt"

	"github.com/google/uuid"
)

// generateID returns a random UUID v4 used as record primary key
func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate record id: %w", err)
	}
	return id.String(), nil
}
