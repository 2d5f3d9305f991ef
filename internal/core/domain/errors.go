package domain

import (
	"errors"
	"fmt"
)

var (
	// Ingestion-path kinds. These are recorded on the job and surface
	// only through status polling, never to the upload caller.
	ErrExtraction = errors.New("extraction failed")
	ErrEmbedding  = errors.New("embedding failed")
	ErrStorage    = errors.New("storage failed")

	// Query-path and boundary kinds, rejected synchronously.
	ErrJobNotFound  = errors.New("job not found")
	ErrEmptyQuery   = errors.New("empty query")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
