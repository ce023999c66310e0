package receipt

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrReceiptExists indicates a receipt with the same id already exists
	ErrReceiptExists = errors.New("withdrawal receipt already exists")

	// ErrReceiptNotFound indicates a receipt doesn't exist
	ErrReceiptNotFound = errors.New("withdrawal receipt not found")
)

type Store interface {
	// Put saves a new withdrawal receipt
	Put(ctx context.Context, record *Record) error

	// Get gets a withdrawal receipt by id
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetAllByCollateral gets the most recent receipts for a collateral pool,
	// newest first
	GetAllByCollateral(ctx context.Context, collateral string, limit uint64) ([]*Record, error)
}
