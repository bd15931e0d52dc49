package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/modaflow/atelier_backend/models"
	"gorm.io/gorm"
)

type productModelReader struct {
	db *gorm.DB
}

func (r *productModelReader) getProductModels(ctx context.Context, ids []int) []*dataloader.Result[*models.ProductModel] {
	var results []models.ProductModel
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.ProductModel](len(ids), err)
	}

	resultMap := make(map[int]*models.ProductModel, len(results))
	for i := range results {
		resultMap[results[i].ID] = &results[i]
	}

	loaderResults := make([]*dataloader.Result[*models.ProductModel], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*models.ProductModel]{Data: resultMap[id]})
	}
	return loaderResults
}

func GetProductModel(ctx context.Context, id int) (*models.ProductModel, error) {
	loaders := For(ctx)
	return loaders.productModelLoader.Load(ctx, id)()
}
