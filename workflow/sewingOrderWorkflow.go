package workflow

import (
	"context"
	"time"

	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SewingOrderPipeline tracks manufacturing progress. Forward-only: no
// skip-back transitions exist.
type SewingOrderPipeline struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func (p *SewingOrderPipeline) fetchOwned(ctx context.Context, manufacturerId, id int) (*models.SewingOrder, error) {
	return utils.FetchOwnedModel[models.SewingOrder](ctx, p.DB, "manufacturer_id", manufacturerId, id)
}

func (p *SewingOrderPipeline) transition(ctx context.Context, manufacturerId, id int, from []models.SewingOrderStatus, to models.SewingOrderStatus, extra map[string]interface{}) (*models.SewingOrder, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := p.DB.WithContext(ctx).Model(&models.SewingOrder{}).
		Where("id = ? AND manufacturer_id = ? AND status IN ?", id, manufacturerId, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := p.fetchOwned(ctx, manufacturerId, id)
		if err != nil {
			return nil, err
		}
		if current.Status == models.SewingOrderStatusCompleted {
			return nil, &utils.ImmutableStateError{Entity: "sewing order", State: string(current.Status)}
		}
		return nil, &utils.ConflictError{Entity: "sewing order", FromState: string(current.Status), ToState: string(to)}
	}
	return p.fetchOwned(ctx, manufacturerId, id)
}

// Start stamps started_at and moves the order into production.
func (p *SewingOrderPipeline) Start(ctx context.Context, id int) (*models.SewingOrder, error) {
	manufacturerId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	return p.transition(ctx, manufacturerId, id,
		[]models.SewingOrderStatus{models.SewingOrderStatusNew},
		models.SewingOrderStatusInProgress,
		map[string]interface{}{"started_at": time.Now()})
}

// Complete closes the order, stamps completed_at, stores the optional proof
// reference and frees the open-order slot for the (model, manufacturer) pair.
func (p *SewingOrderPipeline) Complete(ctx context.Context, id int, proofDocumentUrl string) (*models.SewingOrder, error) {
	manufacturerId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}

	extra := map[string]interface{}{
		"completed_at": time.Now(),
		"open_key":     nil,
	}
	if proofDocumentUrl != "" {
		extra["proof_document_url"] = proofDocumentUrl
	}
	return p.transition(ctx, manufacturerId, id,
		[]models.SewingOrderStatus{models.SewingOrderStatusNew, models.SewingOrderStatusInProgress},
		models.SewingOrderStatusCompleted, extra)
}
