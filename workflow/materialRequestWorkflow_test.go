package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/sirupsen/logrus"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormMysql.New(gormMysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func supplierCtx(userId int) context.Context {
	return utils.SetUserIdInContext(context.Background(), userId)
}

func TestSend_RequiresAcceptedRequest(t *testing.T) {
	db, mock := newMockDB(t)
	p := &MaterialRequestPipeline{DB: db, Logger: logrus.New()}

	// the guarded UPDATE matches no row while the request is still new
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `material_requests` SET .+ WHERE id = \\? AND supplier_id = \\? AND status IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .+ FROM `material_requests`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "supplier_id", "status"}).AddRow(7, 2, "new"))

	_, err := p.Send(supplierCtx(2), 7, &SendShipmentInput{})

	var conflict *utils.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("sending an unaccepted request should conflict, got %v", err)
	}
	if conflict.FromState != "new" || conflict.ToState != "sent" {
		t.Fatalf("conflict = %+v, expected new -> sent", conflict)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPrepareShipment_RejectedRequestTakesNoMetadata(t *testing.T) {
	db, mock := newMockDB(t)
	p := &MaterialRequestPipeline{DB: db, Logger: logrus.New()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `material_requests` SET .+ WHERE id = \\? AND supplier_id = \\? AND status IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .+ FROM `material_requests`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "supplier_id", "status"}).AddRow(7, 2, "rejected"))

	_, err := p.PrepareShipment(supplierCtx(2), 7, &PrepareShipmentInput{BatchLotId: "LOT-1"})

	var immutable *utils.ImmutableStateError
	if !errors.As(err, &immutable) {
		t.Fatalf("prep metadata after a reject should be refused, got %v", err)
	}
	if immutable.State != "rejected" {
		t.Fatalf("state = %q, expected rejected", immutable.State)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPublishDispatch_BoundsThePublish(t *testing.T) {
	var hasDeadline bool
	var got config.MaterialDispatchMessage
	p := &MaterialRequestPipeline{
		Logger: logrus.New(),
		Dispatch: func(ctx context.Context, msg config.MaterialDispatchMessage) (string, error) {
			_, hasDeadline = ctx.Deadline()
			got = msg
			return "m1", nil
		},
	}

	manufacturerId := 3
	modelId := 42
	request := &models.MaterialRequest{
		ID:             11,
		ManufacturerId: &manufacturerId,
		ProductModelId: &modelId,
		TrackingNumber: "TRK-1",
	}
	shipped := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	p.publishDispatch(context.Background(), request, 2, shipped)

	if !hasDeadline {
		t.Fatalf("the publish context must carry a deadline")
	}
	if got.MaterialRequestId != 11 || got.SupplierId != 2 || got.ManufacturerId != 3 || got.ProductModelId != 42 {
		t.Fatalf("unexpected dispatch message: %+v", got)
	}
	if !got.ShippingDate.Equal(shipped) {
		t.Fatalf("shipping date = %v, expected %v", got.ShippingDate, shipped)
	}
}

func TestPublishDispatch_SkipsWithoutManufacturer(t *testing.T) {
	calls := 0
	p := &MaterialRequestPipeline{
		Logger: logrus.New(),
		Dispatch: func(ctx context.Context, msg config.MaterialDispatchMessage) (string, error) {
			calls++
			return "", nil
		},
	}

	p.publishDispatch(context.Background(), &models.MaterialRequest{ID: 12}, 2, time.Now())

	if calls != 0 {
		t.Fatalf("dispatch must not fire without an addressed manufacturer")
	}
}
