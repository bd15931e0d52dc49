package utils

import (
	"context"

	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, db *gorm.DB, id int, associations ...string) (*T, error) {

	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model scoped to an owning identity column
// (ownership mismatch also returns RecordNotFound, never Forbidden)
func FetchOwnedModel[T any](ctx context.Context, db *gorm.DB, ownerColumn string, ownerId int, id int, associations ...string) (*T, error) {

	dbCtx := db.WithContext(ctx).Where(ownerColumn+" = ?", ownerId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch all models scoped to an owning identity column
func FetchOwnedModels[T any](ctx context.Context, db *gorm.DB, ownerColumn string, ownerId int, associations ...string) ([]*T, error) {

	dbCtx := db.WithContext(ctx).Where(ownerColumn+" = ?", ownerId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
