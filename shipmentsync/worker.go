package shipmentsync

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/modaflow/atelier_backend/appctx"
	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Worker consumes material-dispatch events and records the resulting
// shipments. Exactly one shipment exists per material request; redelivered
// events resolve to the already recorded row.
type Worker struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func (w *Worker) processDispatch(ctx context.Context, msg config.MaterialDispatchMessage) (*models.MaterialShipment, error) {
	if msg.MaterialRequestId == 0 || msg.SupplierId == 0 || msg.ManufacturerId == 0 {
		return nil, errors.New("invalid dispatch payload")
	}
	if msg.CorrelationId != "" {
		ctx = appctx.Set(ctx, appctx.ContextKeyCorrelationId, msg.CorrelationId)
	}

	var existing models.MaterialShipment
	err := w.DB.WithContext(ctx).
		Where("material_request_id = ?", msg.MaterialRequestId).
		Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	shipment := newShipmentFromDispatch(msg)

	// Fill gaps from the request record: the event is a thin pointer and the
	// supplier may have staged more detail after publishing.
	var request models.MaterialRequest
	if err := w.DB.WithContext(ctx).Take(&request, msg.MaterialRequestId).Error; err == nil {
		if shipment.BatchLotId == "" {
			shipment.BatchLotId = request.BatchLotId
		}
		if shipment.TrackingNumber == "" {
			shipment.TrackingNumber = request.TrackingNumber
		}
		if shipment.ShippingDate == nil {
			shipment.ShippingDate = request.ShippingDate
		}
		if shipment.ProductModelId == 0 && request.ProductModelId != nil {
			shipment.ProductModelId = *request.ProductModelId
		}
	}

	if err := w.DB.WithContext(ctx).Create(shipment).Error; err != nil {
		if !isDuplicateKeyErr(err) {
			config.LogError(w.Logger, "worker.go", "processDispatch", "CreateMaterialShipment", msg, err)
			return nil, err
		}
		// a concurrent delivery already recorded it
		if err := w.DB.WithContext(ctx).
			Where("material_request_id = ?", msg.MaterialRequestId).
			Take(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return shipment, nil
}

func newShipmentFromDispatch(msg config.MaterialDispatchMessage) *models.MaterialShipment {
	requestId := msg.MaterialRequestId
	shipment := &models.MaterialShipment{
		MaterialRequestId: &requestId,
		SupplierId:        msg.SupplierId,
		ManufacturerId:    msg.ManufacturerId,
		ProductModelId:    msg.ProductModelId,
		Status:            models.ShipmentStatusSentToManufacturer,
		BatchLotId:        msg.BatchLotId,
		TrackingNumber:    msg.TrackingNumber,
	}
	if !msg.ShippingDate.IsZero() {
		d := msg.ShippingDate
		shipment.ShippingDate = &d
	} else {
		now := time.Now()
		shipment.ShippingDate = &now
	}
	return shipment
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
