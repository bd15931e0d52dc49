package workflow

import (
	"context"
	"time"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/middlewares"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaterialRequestPipeline drives a supplier fulfillment request from
// creation to completion or rejection. Every mutating operation is scoped
// to the supplier on the record; a mismatch reads as NotFound.
// dispatchPublishTimeout bounds the pubsub publish made from the Send
// request path.
const dispatchPublishTimeout = 10 * time.Second

type MaterialRequestPipeline struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Dispatch publishes the material-dispatch event consumed by the
	// shipment sync worker. Nil disables publishing (tests, dev without
	// pubsub); Send logs and carries on, the transition is never unwound.
	Dispatch func(ctx context.Context, msg config.MaterialDispatchMessage) (string, error)
}

type NewMaterialRequest struct {
	ProductModelId *int             `json:"product_model_id"`
	CollectionId   int              `json:"collection_id"`
	SupplierId     *int             `json:"supplier_id"`
	ManufacturerId *int             `json:"manufacturer_id"`
	Material       string           `json:"material" validate:"required"`
	Color          string           `json:"color" validate:"required"`
	QuantityKg     decimal.Decimal  `json:"quantity_kg"`
	Deadline       *time.Time       `json:"deadline"`
}

type PrepareShipmentInput struct {
	QuantitySentKg *decimal.Decimal `json:"quantity_sent_kg"`
	BatchLotId     string           `json:"batch_lot_id"`
	DocumentUrl    string           `json:"document_url"`
}

type SendShipmentInput struct {
	ShippingDate        *time.Time `json:"shipping_date"`
	TrackingNumber      string     `json:"tracking_number"`
	ManufacturerAddress string     `json:"manufacturer_address"`
}

func actorId(ctx context.Context) (int, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return 0, utils.ErrorUnauthenticated
	}
	return userId, nil
}

// Create registers a designer's request targeting a supplier. Product-model
// context (name/sku/collection) is resolved and denormalized when a model id
// is supplied.
func (p *MaterialRequestPipeline) Create(ctx context.Context, input *NewMaterialRequest) (*models.MaterialRequest, error) {
	designerId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.QuantityKg.GreaterThan(decimal.Zero) {
		return nil, utils.NewValidationError("quantity_kg must be greater than zero")
	}

	request := models.MaterialRequest{
		ProductModelId: input.ProductModelId,
		CollectionId:   input.CollectionId,
		RequestedBy:    designerId,
		SupplierId:     input.SupplierId,
		ManufacturerId: input.ManufacturerId,
		Material:       input.Material,
		Color:          input.Color,
		QuantityKg:     input.QuantityKg,
		Deadline:       input.Deadline,
		Status:         models.MaterialRequestStatusNew,
	}

	if input.ProductModelId != nil {
		model, err := p.resolveProductModel(ctx, *input.ProductModelId)
		if err != nil || model == nil {
			return nil, utils.NewValidationError("product model %d not found", *input.ProductModelId)
		}
		request.ProductModelName = model.Name
		request.ProductModelSku = model.Sku
		if request.CollectionId == 0 {
			request.CollectionId = model.CollectionId
		}
	}

	if err := p.DB.WithContext(ctx).Create(&request).Error; err != nil {
		config.LogError(p.Logger, "materialRequestWorkflow.go", "Create", "CreateMaterialRequest", input, err)
		return nil, err
	}
	return &request, nil
}

// resolveProductModel prefers the request-scoped dataloader so model lookups
// batch with the rest of the request; outside a request (workers, tests) it
// reads directly.
func (p *MaterialRequestPipeline) resolveProductModel(ctx context.Context, id int) (*models.ProductModel, error) {
	if middlewares.For(ctx) != nil {
		return middlewares.GetProductModel(ctx, id)
	}
	return utils.FetchSingleModel[models.ProductModel](ctx, p.DB, id)
}

func (p *MaterialRequestPipeline) fetchOwned(ctx context.Context, supplierId, id int) (*models.MaterialRequest, error) {
	return utils.FetchOwnedModel[models.MaterialRequest](ctx, p.DB, "supplier_id", supplierId, id)
}

// transition performs a compare-and-swap on status. Zero affected rows means
// a concurrent caller won the race and the precondition no longer holds.
func (p *MaterialRequestPipeline) transition(ctx context.Context, supplierId, id int, from []models.MaterialRequestStatus, to models.MaterialRequestStatus, extra map[string]interface{}) (*models.MaterialRequest, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := p.DB.WithContext(ctx).Model(&models.MaterialRequest{}).
		Where("id = ? AND supplier_id = ? AND status IN ?", id, supplierId, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := p.fetchOwned(ctx, supplierId, id)
		if err != nil {
			return nil, err
		}
		if current.Status.IsTerminal() {
			return nil, &utils.ImmutableStateError{Entity: "material request", State: string(current.Status)}
		}
		return nil, &utils.ConflictError{Entity: "material request", FromState: string(current.Status), ToState: string(to)}
	}
	return p.fetchOwned(ctx, supplierId, id)
}

// Accept moves a request into in_progress. Accepting an already accepted
// request is an idempotent no-op.
func (p *MaterialRequestPipeline) Accept(ctx context.Context, id int) (*models.MaterialRequest, error) {
	supplierId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}

	request, err := p.fetchOwned(ctx, supplierId, id)
	if err != nil {
		return nil, err
	}
	if request.Status == models.MaterialRequestStatusInProgress {
		return request, nil
	}
	return p.transition(ctx, supplierId, id,
		[]models.MaterialRequestStatus{models.MaterialRequestStatusNew},
		models.MaterialRequestStatusInProgress, nil)
}

// Reject is the terminal escape from new/in_progress. A reason is mandatory.
func (p *MaterialRequestPipeline) Reject(ctx context.Context, id int, reason string) (*models.MaterialRequest, error) {
	supplierId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, utils.NewValidationError("rejection reason is required")
	}
	return p.transition(ctx, supplierId, id,
		[]models.MaterialRequestStatus{models.MaterialRequestStatusNew, models.MaterialRequestStatusInProgress},
		models.MaterialRequestStatusRejected,
		map[string]interface{}{"rejection_reason": reason})
}

// PrepareShipment records shipment-prep metadata without changing status.
// Staging step before Send. The update carries the same status guard as the
// transitions so metadata cannot land on a request a concurrent caller has
// already rejected or sent.
func (p *MaterialRequestPipeline) PrepareShipment(ctx context.Context, id int, input *PrepareShipmentInput) (*models.MaterialRequest, error) {
	supplierId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.QuantitySentKg != nil {
		if !input.QuantitySentKg.GreaterThan(decimal.Zero) {
			return nil, utils.NewValidationError("quantity_sent_kg must be greater than zero")
		}
		updates["quantity_sent_kg"] = *input.QuantitySentKg
	}
	if input.BatchLotId != "" {
		updates["batch_lot_id"] = input.BatchLotId
	}
	if input.DocumentUrl != "" {
		updates["document_url"] = input.DocumentUrl
	}
	if len(updates) == 0 {
		return p.fetchOwned(ctx, supplierId, id)
	}

	res := p.DB.WithContext(ctx).Model(&models.MaterialRequest{}).
		Where("id = ? AND supplier_id = ? AND status IN ?", id, supplierId,
			[]models.MaterialRequestStatus{models.MaterialRequestStatusNew, models.MaterialRequestStatusInProgress}).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := p.fetchOwned(ctx, supplierId, id)
		if err != nil {
			return nil, err
		}
		// rejected, sent or completed: the request no longer takes prep data
		return nil, &utils.ImmutableStateError{Entity: "material request", State: string(current.Status)}
	}
	return p.fetchOwned(ctx, supplierId, id)
}

// Send marks an accepted request sent and publishes the dispatch event that
// produces a MaterialShipment for the manufacturer. Event publish failures
// are logged and reported but never unwind the transition.
func (p *MaterialRequestPipeline) Send(ctx context.Context, id int, input *SendShipmentInput) (*models.MaterialRequest, error) {
	supplierId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}

	shippingDate := time.Now()
	if input.ShippingDate != nil {
		shippingDate = *input.ShippingDate
	}

	request, err := p.transition(ctx, supplierId, id,
		[]models.MaterialRequestStatus{models.MaterialRequestStatusInProgress},
		models.MaterialRequestStatusSent,
		map[string]interface{}{
			"shipping_date":        shippingDate,
			"tracking_number":      input.TrackingNumber,
			"manufacturer_address": input.ManufacturerAddress,
		})
	if err != nil {
		return nil, err
	}

	p.publishDispatch(ctx, request, supplierId, shippingDate)
	return request, nil
}

// publishDispatch emits the dispatch event under a bounded timeout. The
// transition has already committed, so a broker outage costs the event,
// never the supplier's request.
func (p *MaterialRequestPipeline) publishDispatch(ctx context.Context, request *models.MaterialRequest, supplierId int, shippingDate time.Time) {
	if p.Dispatch == nil || request.ManufacturerId == nil {
		return
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := config.MaterialDispatchMessage{
		MaterialRequestId: request.ID,
		SupplierId:        supplierId,
		ManufacturerId:    *request.ManufacturerId,
		BatchLotId:        request.BatchLotId,
		TrackingNumber:    request.TrackingNumber,
		ShippingDate:      shippingDate,
		CorrelationId:     correlationId,
	}
	if request.ProductModelId != nil {
		msg.ProductModelId = *request.ProductModelId
	}

	publishCtx, cancel := context.WithTimeout(ctx, dispatchPublishTimeout)
	defer cancel()
	if _, err := p.Dispatch(publishCtx, msg); err != nil {
		config.LogError(p.Logger, "materialRequestWorkflow.go", "Send", "PublishMaterialDispatch", msg, err)
	}
}

// Complete closes a sent request.
func (p *MaterialRequestPipeline) Complete(ctx context.Context, id int) (*models.MaterialRequest, error) {
	supplierId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	return p.transition(ctx, supplierId, id,
		[]models.MaterialRequestStatus{models.MaterialRequestStatusSent},
		models.MaterialRequestStatusCompleted, nil)
}

// AddMessage appends a note to the request thread. Any party to the request
// may write; everyone else reads NotFound.
func (p *MaterialRequestPipeline) AddMessage(ctx context.Context, id int, body string) (*models.Comment, error) {
	userId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, utils.NewValidationError("message body is required")
	}

	request, err := utils.FetchSingleModel[models.MaterialRequest](ctx, p.DB, id)
	if err != nil {
		return nil, err
	}
	if !isRequestParty(request, userId) {
		return nil, utils.ErrorRecordNotFound
	}

	return models.CreateComment(ctx, p.DB, &models.NewComment{
		Description:   body,
		ReferenceID:   request.ID,
		ReferenceType: "material_requests",
	})
}

func isRequestParty(request *models.MaterialRequest, userId int) bool {
	if request.RequestedBy == userId {
		return true
	}
	if request.SupplierId != nil && *request.SupplierId == userId {
		return true
	}
	if request.ManufacturerId != nil && *request.ManufacturerId == userId {
		return true
	}
	return false
}
