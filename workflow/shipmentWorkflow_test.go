package workflow

import (
	"errors"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/modaflow/atelier_backend/models"
	"gorm.io/gorm"
)

func TestNewSewingOrderFromShipment_Defaults(t *testing.T) {
	shipment := &models.MaterialShipment{
		ID:             7,
		SupplierId:     2,
		ManufacturerId: 3,
		ProductModelId: 42,
	}
	openKey := models.SewingOrderOpenKey(42, 3)

	order := newSewingOrderFromShipment(shipment, openKey, nil, nil)

	if order.QuantityPieces != 1 {
		t.Fatalf("quantity = %d, expected default 1", order.QuantityPieces)
	}
	if order.Status != models.SewingOrderStatusNew {
		t.Fatalf("status = %q, expected new", order.Status)
	}
	if order.MaterialStatus != models.MaterialStatusReady {
		t.Fatalf("material status = %q, expected ready", order.MaterialStatus)
	}
	if order.OpenKey == nil || *order.OpenKey != "42:3" {
		t.Fatalf("open key = %v, expected 42:3", order.OpenKey)
	}
	if order.ShipmentId == nil || *order.ShipmentId != 7 {
		t.Fatalf("shipment id = %v, expected 7", order.ShipmentId)
	}
	if order.Deadline != nil {
		t.Fatalf("deadline should be nil when the request carries none")
	}
}

func TestNewSewingOrderFromShipment_ExplicitQuantityAndDeadline(t *testing.T) {
	shipment := &models.MaterialShipment{
		ID:             8,
		ManufacturerId: 3,
		ProductModelId: 42,
	}
	qty := 50
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	order := newSewingOrderFromShipment(shipment, "42:3", &qty, &deadline)

	if order.QuantityPieces != 50 {
		t.Fatalf("quantity = %d, expected 50", order.QuantityPieces)
	}
	if order.Deadline == nil || !order.Deadline.Equal(deadline) {
		t.Fatalf("deadline = %v, expected %v", order.Deadline, deadline)
	}
}

func TestNewSewingOrderFromShipment_IgnoresNonPositiveQuantity(t *testing.T) {
	shipment := &models.MaterialShipment{ID: 9, ManufacturerId: 3, ProductModelId: 42}
	qty := 0
	order := newSewingOrderFromShipment(shipment, "42:3", &qty, nil)
	if order.QuantityPieces != 1 {
		t.Fatalf("quantity = %d, expected fallback 1", order.QuantityPieces)
	}
}

func TestConcurrentConfirmsConvergeOnOneOrder(t *testing.T) {
	// the loser of the insert race hits the open-key unique index and must
	// merge into the winner's order
	winner := &models.SewingOrder{ID: 1, ProductModelId: 42, ManufacturerId: 3}
	finds, creates := 0, 0

	order, err := resolveSingleton(
		func() (*models.SewingOrder, error) {
			finds++
			if finds == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return winner, nil
		},
		func() (*models.SewingOrder, error) {
			creates++
			return nil, &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry '42:3' for key 'sewing_orders.open_key'"}
		},
	)
	if err != nil {
		t.Fatalf("duplicate key should resolve to the winner's order: %v", err)
	}
	if order != winner {
		t.Fatalf("expected the winner's order, got %+v", order)
	}
	if creates != 1 || finds != 2 {
		t.Fatalf("creates = %d finds = %d, expected one insert attempt and a re-read", creates, finds)
	}
}

func TestConfirmReusesExistingOpenOrder(t *testing.T) {
	existing := &models.SewingOrder{ID: 5, ProductModelId: 42, ManufacturerId: 3}
	creates := 0

	order, err := resolveSingleton(
		func() (*models.SewingOrder, error) { return existing, nil },
		func() (*models.SewingOrder, error) { creates++; return &models.SewingOrder{}, nil },
	)
	if err != nil {
		t.Fatalf("existing open order should be reused: %v", err)
	}
	if order != existing || creates != 0 {
		t.Fatalf("expected the existing order with no insert (creates = %d)", creates)
	}
}

func TestConfirmUpsertPropagatesNonDuplicateErrors(t *testing.T) {
	boom := errors.New("deadlock found when trying to get lock")
	finds := 0

	_, err := resolveSingleton(
		func() (*models.SewingOrder, error) { finds++; return nil, gorm.ErrRecordNotFound },
		func() (*models.SewingOrder, error) { return nil, boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("non-duplicate insert errors must surface, got %v", err)
	}
	if finds != 1 {
		t.Fatalf("finds = %d, a non-duplicate error must not trigger a re-read", finds)
	}
}
