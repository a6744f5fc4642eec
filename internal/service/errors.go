package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("validation")                  // 400
	ErrNotFound   = errors.New("not found")                   // 404
	ErrConflict   = errors.New("conflict")                    // 409
	ErrGateway    = errors.New("payment gateway unavailable") // 502, retryable
)

// InsufficientStockError aborts the whole checkout; no partial
// reservation survives. It matches ErrConflict for HTTP mapping while
// keeping the actual-vs-requested figures for the client.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Name      string
	Available int
	Requested uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: available %d, requested %d",
		e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrConflict
}
