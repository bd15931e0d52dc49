package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/modaflow/atelier_backend/models"
	"gorm.io/gorm"
)

type profileReader struct {
	db *gorm.DB
}

func (r *profileReader) getProfiles(ctx context.Context, ids []int) []*dataloader.Result[*models.Profile] {
	var results []models.Profile
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Profile](len(ids), err)
	}

	resultMap := make(map[int]*models.Profile, len(results))
	for i := range results {
		resultMap[results[i].ID] = &results[i]
	}

	loaderResults := make([]*dataloader.Result[*models.Profile], 0, len(ids))
	for _, id := range ids {
		// a missing profile degrades the line item, it is not an error
		loaderResults = append(loaderResults, &dataloader.Result[*models.Profile]{Data: resultMap[id]})
	}
	return loaderResults
}

func GetProfile(ctx context.Context, id int) (*models.Profile, error) {
	loaders := For(ctx)
	return loaders.profileLoader.Load(ctx, id)()
}

// GetProfiles resolves a batch of profile ids in a single query.
func GetProfiles(ctx context.Context, ids []int) ([]*models.Profile, []error) {
	loaders := For(ctx)
	return loaders.profileLoader.LoadMany(ctx, ids)()
}
