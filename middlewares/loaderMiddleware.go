package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/modaflow/atelier_backend/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	profileLoader      *dataloader.Loader[int, *models.Profile]
	productModelLoader *dataloader.Loader[int, *models.ProductModel]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	profileReader := &profileReader{db: conn}
	productModelReader := &productModelReader{db: conn}

	return &Loaders{
		profileLoader:      dataloader.NewBatchedLoader(profileReader.getProfiles, dataloader.WithWait[int, *models.Profile](time.Millisecond)),
		productModelLoader: dataloader.NewBatchedLoader(productModelReader.getProductModels, dataloader.WithWait[int, *models.ProductModel](time.Millisecond)),
	}
}

func LoaderMiddleware(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(conn)
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
