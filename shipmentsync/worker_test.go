package shipmentsync

import (
	"testing"
	"time"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/models"
)

func TestNewShipmentFromDispatch(t *testing.T) {
	shipped := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	msg := config.MaterialDispatchMessage{
		MaterialRequestId: 11,
		SupplierId:        2,
		ManufacturerId:    3,
		ProductModelId:    42,
		BatchLotId:        "LOT-9",
		TrackingNumber:    "TRK-1",
		ShippingDate:      shipped,
	}

	shipment := newShipmentFromDispatch(msg)

	if shipment.MaterialRequestId == nil || *shipment.MaterialRequestId != 11 {
		t.Fatalf("material request id = %v, expected 11", shipment.MaterialRequestId)
	}
	if shipment.Status != models.ShipmentStatusSentToManufacturer {
		t.Fatalf("status = %q, expected sent_to_manufacturer", shipment.Status)
	}
	if shipment.ShippingDate == nil || !shipment.ShippingDate.Equal(shipped) {
		t.Fatalf("shipping date = %v, expected %v", shipment.ShippingDate, shipped)
	}
	if shipment.BatchLotId != "LOT-9" || shipment.TrackingNumber != "TRK-1" {
		t.Fatalf("batch/tracking not carried over: %+v", shipment)
	}
}

func TestNewShipmentFromDispatch_DefaultsShippingDate(t *testing.T) {
	msg := config.MaterialDispatchMessage{
		MaterialRequestId: 12,
		SupplierId:        2,
		ManufacturerId:    3,
	}
	shipment := newShipmentFromDispatch(msg)
	if shipment.ShippingDate == nil {
		t.Fatalf("shipping date should default to now when the event carries none")
	}
}
