package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateToken validates a node token read from layer input.
//
// Tokens become words in the walk corpus, so they must be non-empty and free
// of whitespace and control characters.
func ValidateToken(token string) error {
	if token == "" {
		return New(ErrCodeInvalidInput, "node token cannot be empty")
	}
	for _, r := range token {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node token %q contains whitespace or control characters", token)
		}
	}
	return nil
}

// ValidateProbability checks that v is a finite value in [0, 1].
func ValidateProbability(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return New(ErrCodeInvalidConfig, "%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

// ValidatePositive checks that v is finite and strictly positive.
func ValidatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be positive, got %v", name, v)
	}
	return nil
}

// ValidatePositiveInt checks that v is at least 1.
func ValidatePositiveInt(name string, v int) error {
	if v < 1 {
		return New(ErrCodeInvalidConfig, "%s must be at least 1, got %d", name, v)
	}
	return nil
}

// ValidatePath validates a user-supplied file system path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
