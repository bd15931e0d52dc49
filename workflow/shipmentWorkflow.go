package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ShipmentPipeline tracks receipt of a material shipment by the addressed
// manufacturer. Confirming derives (or merges into) a sewing order.
type ShipmentPipeline struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

type ReportProblemInput struct {
	Reason  string `json:"reason" validate:"required"`
	Comment string `json:"comment"`
}

func (p *ShipmentPipeline) fetchOwned(ctx context.Context, manufacturerId, id int) (*models.MaterialShipment, error) {
	return utils.FetchOwnedModel[models.MaterialShipment](ctx, p.DB, "manufacturer_id", manufacturerId, id)
}

// Confirm moves an open shipment to confirmed and upserts the sewing order
// for (product model, manufacturer). The upsert is serialized by a redis
// lock (best effort), a MySQL advisory lock, and a unique open-order index,
// so two concurrent confirms never create two orders.
func (p *ShipmentPipeline) Confirm(ctx context.Context, shipmentId int, quantityPieces *int) (*models.MaterialShipment, *models.SewingOrder, error) {
	manufacturerId, err := actorId(ctx)
	if err != nil {
		return nil, nil, err
	}

	shipment, err := p.fetchOwned(ctx, manufacturerId, shipmentId)
	if err != nil {
		return nil, nil, err
	}
	if !shipment.Status.IsOpen() {
		return nil, nil, &utils.ImmutableStateError{Entity: "material shipment", State: string(shipment.Status)}
	}

	// Deadline rides along from the originating request when linked.
	var deadline *time.Time
	if shipment.MaterialRequestId != nil {
		request, err := utils.FetchSingleModel[models.MaterialRequest](ctx, p.DB, *shipment.MaterialRequestId)
		if err == nil {
			deadline = request.Deadline
		}
	}

	openKey := models.SewingOrderOpenKey(shipment.ProductModelId, manufacturerId)

	if lock := obtainBestEffortLock(ctx, openKey); lock != nil {
		defer lock.Release(context.Background())
	}

	var order *models.SewingOrder
	now := time.Now()
	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireSewingOrderLock(tx, openKey); err != nil {
			return err
		}
		defer ReleaseSewingOrderLock(tx, openKey)

		res := tx.Model(&models.MaterialShipment{}).
			Where("id = ? AND manufacturer_id = ? AND status IN ?", shipmentId, manufacturerId,
				[]models.ShipmentStatus{models.ShipmentStatusSentToManufacturer, models.ShipmentStatusReceived}).
			Updates(map[string]interface{}{
				"status":       models.ShipmentStatusConfirmed,
				"confirmed_at": now,
				"received_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &utils.ConflictError{Entity: "material shipment", FromState: string(shipment.Status), ToState: string(models.ShipmentStatusConfirmed)}
		}

		order, err = upsertSewingOrder(tx, shipment, openKey, quantityPieces, deadline)
		return err
	})
	if err != nil {
		config.LogError(p.Logger, "shipmentWorkflow.go", "Confirm", "UpsertSewingOrder", shipmentId, err)
		return nil, nil, err
	}

	shipment, err = p.fetchOwned(ctx, manufacturerId, shipmentId)
	if err != nil {
		return nil, nil, err
	}
	return shipment, order, nil
}

// upsertSewingOrder merges the confirmed shipment into an existing open
// order for the same (product model, manufacturer) pair, or creates one.
// A 1062 on create means a concurrent confirm won; retry as a merge.
func upsertSewingOrder(tx *gorm.DB, shipment *models.MaterialShipment, openKey string, quantityPieces *int, deadline *time.Time) (*models.SewingOrder, error) {
	find := func() (*models.SewingOrder, error) {
		var existing models.SewingOrder
		if err := tx.Where("open_key = ?", openKey).First(&existing).Error; err != nil {
			return nil, err
		}
		return mergeShipmentIntoOrder(tx, &existing, shipment, deadline)
	}
	create := func() (*models.SewingOrder, error) {
		order := newSewingOrderFromShipment(shipment, openKey, quantityPieces, deadline)
		if err := tx.Create(order).Error; err != nil {
			return nil, err
		}
		return order, nil
	}
	return resolveSingleton(find, create)
}

func newSewingOrderFromShipment(shipment *models.MaterialShipment, openKey string, quantityPieces *int, deadline *time.Time) *models.SewingOrder {
	qty := 1
	if quantityPieces != nil && *quantityPieces > 0 {
		qty = *quantityPieces
	}
	return &models.SewingOrder{
		ProductModelId: shipment.ProductModelId,
		ManufacturerId: shipment.ManufacturerId,
		ShipmentId:     &shipment.ID,
		QuantityPieces: qty,
		Status:         models.SewingOrderStatusNew,
		MaterialStatus: models.MaterialStatusReady,
		OpenKey:        &openKey,
		Deadline:       deadline,
	}
}

func mergeShipmentIntoOrder(tx *gorm.DB, order *models.SewingOrder, shipment *models.MaterialShipment, deadline *time.Time) (*models.SewingOrder, error) {
	updates := map[string]interface{}{
		"shipment_id":     shipment.ID,
		"material_status": models.MaterialStatusReady,
	}
	if order.Deadline == nil && deadline != nil {
		updates["deadline"] = deadline
	}
	if err := tx.Model(&models.SewingOrder{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	var merged models.SewingOrder
	if err := tx.First(&merged, order.ID).Error; err != nil {
		return nil, err
	}
	return &merged, nil
}

// ReportProblem is the manufacturer's terminal escape for a shipment it
// cannot accept. Resolution is out of scope for this core.
func (p *ShipmentPipeline) ReportProblem(ctx context.Context, shipmentId int, input *ReportProblemInput) (*models.MaterialShipment, error) {
	manufacturerId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	if input.Reason == "" {
		return nil, utils.NewValidationError("problem reason is required")
	}

	shipment, err := p.fetchOwned(ctx, manufacturerId, shipmentId)
	if err != nil {
		return nil, err
	}
	if !shipment.Status.IsOpen() {
		return nil, &utils.ImmutableStateError{Entity: "material shipment", State: string(shipment.Status)}
	}

	res := p.DB.WithContext(ctx).Model(&models.MaterialShipment{}).
		Where("id = ? AND manufacturer_id = ? AND status IN ?", shipmentId, manufacturerId,
			[]models.ShipmentStatus{models.ShipmentStatusSentToManufacturer, models.ShipmentStatusReceived}).
		Updates(map[string]interface{}{
			"status":         models.ShipmentStatusProblemReported,
			"problem_reason": input.Reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &utils.ConflictError{Entity: "material shipment", FromState: string(shipment.Status), ToState: string(models.ShipmentStatusProblemReported)}
	}

	if input.Comment != "" {
		summary := fmt.Sprintf("Problem reported on shipment #%d: %s (%s)", shipmentId, input.Reason, input.Comment)
		if _, err := models.CreateSystemComment(ctx, p.DB, "material_shipments", shipmentId, summary); err != nil {
			config.LogError(p.Logger, "shipmentWorkflow.go", "ReportProblem", "CreateSystemComment", shipmentId, err)
		}
	}

	return p.fetchOwned(ctx, manufacturerId, shipmentId)
}
