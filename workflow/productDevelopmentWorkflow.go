package workflow

import (
	"context"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultCatalogPrice is the display price used when an approved model
// carries no price of its own.
var DefaultCatalogPrice = decimal.NewFromInt(1000)

const placeholderImageUrl = "/images/placeholder-garment.png"

// ApprovalPolicy decides whether a model may be approved. The materials
// verification (lab results vs declared composition) lives in a separate
// subsystem; callers inject an enforcing policy where that check is wanted.
type ApprovalPolicy func(ctx context.Context, model *models.ProductModel, approvedBy int) error

// ProductDevelopmentWorkflow advances a model along
// idea -> prototype -> testing -> approved, deriving the catalog entry on
// approval.
type ProductDevelopmentWorkflow struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Nil means permissive: the external verifier is trusted to have run.
	ApprovalPolicy ApprovalPolicy
}

type NewProductModel struct {
	CollectionId int             `json:"collection_id"`
	Name         string          `json:"name" validate:"required"`
	Sku          string          `json:"sku"`
	Category     string          `json:"category"`
	Materials    string          `json:"materials"`
	Price        decimal.Decimal `json:"price"`
}

type UpdateProductModel struct {
	Name      *string          `json:"name"`
	Sku       *string          `json:"sku"`
	Category  *string          `json:"category"`
	Materials *string          `json:"materials"`
	Price     *decimal.Decimal `json:"price"`
}

type AdvanceStageInput struct {
	TargetStage  string `json:"target_stage" validate:"required"`
	ApprovalItem string `json:"approval_item"`
	Note         string `json:"note"`
	ApproverId   *int   `json:"approver_id"`
}

// Create registers a designer's new model at the idea stage.
func (w *ProductDevelopmentWorkflow) Create(ctx context.Context, input *NewProductModel) (*models.ProductModel, error) {
	designerId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	model := models.ProductModel{
		CollectionId:     input.CollectionId,
		DesignerId:       designerId,
		Name:             input.Name,
		Sku:              input.Sku,
		Category:         input.Category,
		Materials:        input.Materials,
		Price:            input.Price,
		DevelopmentStage: models.DevelopmentStageIdea,
	}
	if err := w.DB.WithContext(ctx).Create(&model).Error; err != nil {
		config.LogError(w.Logger, "productDevelopmentWorkflow.go", "Create", "CreateProductModel", input, err)
		return nil, err
	}
	return &model, nil
}

// Edit mutates core fields. Approved models are frozen; only an
// administrative channel outside this core may alter them.
func (w *ProductDevelopmentWorkflow) Edit(ctx context.Context, modelId int, input *UpdateProductModel) (*models.ProductModel, error) {
	if _, err := actorId(ctx); err != nil {
		return nil, err
	}

	model, err := utils.FetchSingleModel[models.ProductModel](ctx, w.DB, modelId)
	if err != nil {
		return nil, err
	}
	if model.DevelopmentStage == models.DevelopmentStageApproved {
		return nil, &utils.ImmutableStateError{Entity: "product model", State: string(model.DevelopmentStage)}
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, utils.NewValidationError("name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Sku != nil {
		updates["sku"] = *input.Sku
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Materials != nil {
		updates["materials"] = *input.Materials
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if len(updates) == 0 {
		return model, nil
	}

	// Guarded against a concurrent approval landing between read and write.
	res := w.DB.WithContext(ctx).Model(&models.ProductModel{}).
		Where("id = ? AND development_stage <> ?", modelId, models.DevelopmentStageApproved).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &utils.ImmutableStateError{Entity: "product model", State: string(models.DevelopmentStageApproved)}
	}
	return utils.FetchSingleModel[models.ProductModel](ctx, w.DB, modelId)
}

// AdvanceStage validates and applies a stage transition. On approval the
// audit record and catalog derivation are side effects: their failures are
// logged and reported but never unwind the stage change.
func (w *ProductDevelopmentWorkflow) AdvanceStage(ctx context.Context, modelId int, input *AdvanceStageInput) (*models.ProductModel, error) {
	approverId, err := actorId(ctx)
	if err != nil {
		return nil, err
	}
	if input.ApproverId != nil {
		approverId = *input.ApproverId
	}

	target, ok := models.ParseDevelopmentStage(input.TargetStage)
	if !ok {
		return nil, utils.NewValidationError("invalid development stage %q", input.TargetStage)
	}

	model, err := utils.FetchSingleModel[models.ProductModel](ctx, w.DB, modelId, "Images")
	if err != nil {
		return nil, err
	}
	if !model.DevelopmentStage.CanTransition(target) {
		if model.DevelopmentStage.IsTerminal() {
			return nil, &utils.ImmutableStateError{Entity: "product model", State: string(model.DevelopmentStage)}
		}
		return nil, &utils.ConflictError{Entity: "product model", FromState: string(model.DevelopmentStage), ToState: string(target)}
	}

	if target == models.DevelopmentStageApproved && w.ApprovalPolicy != nil {
		if err := w.ApprovalPolicy(ctx, model, approverId); err != nil {
			return nil, err
		}
	}

	res := w.DB.WithContext(ctx).Model(&models.ProductModel{}).
		Where("id = ? AND development_stage = ?", modelId, model.DevelopmentStage).
		Update("development_stage", target)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &utils.ConflictError{Entity: "product model", FromState: string(model.DevelopmentStage), ToState: string(target)}
	}
	model.DevelopmentStage = target

	if target == models.DevelopmentStageApproved {
		approval := models.ProductModelApproval{
			ProductModelId: model.ID,
			ApprovalItem:   input.ApprovalItem,
			Status:         "approved",
			Note:           input.Note,
			ApprovedBy:     approverId,
		}
		if err := w.DB.WithContext(ctx).Create(&approval).Error; err != nil {
			// audit failure must not roll back the approval
			config.LogError(w.Logger, "productDevelopmentWorkflow.go", "AdvanceStage", "CreateApprovalAudit", model.ID, err)
		}

		if _, err := w.DeriveCatalogProduct(ctx, model); err != nil {
			// a missing catalog entry is recoverable by re-running the
			// derivation; the approval itself must not be lost
			config.LogError(w.Logger, "productDevelopmentWorkflow.go", "AdvanceStage", "DeriveCatalogProduct", model.ID, err)
		}
	}

	return model, nil
}

// DeriveCatalogProduct creates the sellable catalog entry exactly once per
// model. Existence is keyed by product_model_id; a duplicate-key race
// resolves to the winner's row.
func (w *ProductDevelopmentWorkflow) DeriveCatalogProduct(ctx context.Context, model *models.ProductModel) (*models.Product, error) {
	find := func() (*models.Product, error) {
		var existing models.Product
		if err := w.DB.WithContext(ctx).Where("product_model_id = ?", model.ID).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	create := func() (*models.Product, error) {
		product := models.Product{
			ProductModelId: model.ID,
			Title:          model.Name,
			Sku:            model.Sku,
			Price:          catalogDisplayPrice(model.Price),
			ImageUrl:       pickPrimaryImage(model.Images),
		}
		if err := w.DB.WithContext(ctx).Create(&product).Error; err != nil {
			return nil, err
		}
		return &product, nil
	}
	return resolveSingleton(find, create)
}

func catalogDisplayPrice(modelPrice decimal.Decimal) decimal.Decimal {
	if modelPrice.GreaterThan(decimal.Zero) {
		return modelPrice
	}
	return DefaultCatalogPrice
}

// pickPrimaryImage selects the first entry marked primary, else the first
// available, else a placeholder.
func pickPrimaryImage(images []models.ProductModelImage) string {
	for _, img := range images {
		if img.IsPrimary != nil && *img.IsPrimary {
			return img.ImageUrl
		}
	}
	if len(images) > 0 {
		return images[0].ImageUrl
	}
	return placeholderImageUrl
}
