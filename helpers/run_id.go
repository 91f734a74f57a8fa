// Package helpers предоставляет вспомогательные функции общего назначения.
package helpers

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID создает идентификатор прогона (случайный UUID v4).
func NewRunID() string {
	return uuid.NewString()
}

// ParseRunID проверяет, что строка является валидным UUID, и возвращает его каноническую форму.
func ParseRunID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("helpers.ParseRunID: %q: %w", s, err)
	}
	return id.String(), nil
}
