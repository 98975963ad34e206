package repository

import (
	"context"

	"labelcam/internal/model"
)

// LabelRepository defines the append-only label record store.
type LabelRepository interface {
	// Create operations
	Insert(ctx context.Context, rec *model.LabelRecord) (int64, error)

	// Read operations
	GetAll(ctx context.Context) ([]model.LabelRecord, error)
	GetClasses(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}
