package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/middlewares"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultUnitCostPerKg is the configured estimate applied when no inventory
// price matches an expense line.
var DefaultUnitCostPerKg = decimal.NewFromInt(500)

const reportQueryTimeout = 10 * time.Second

// ExpenseLine is one material request priced against inventory reference
// data. IsEstimated marks lines costed with the fallback default.
type ExpenseLine struct {
	MaterialRequestId int             `json:"material_request_id"`
	SupplierId        int             `json:"supplier_id"`
	SupplierName      string          `json:"supplier_name"`
	Material          string          `json:"material"`
	Color             string          `json:"color"`
	QuantityKg        decimal.Decimal `json:"quantity_kg"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Cost              decimal.Decimal `json:"cost"`
	IsEstimated       bool            `json:"is_estimated"`
	Month             string          `json:"month"`
}

type MonthBucket struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
}

type FinancialReport struct {
	Revenue     decimal.Decimal `json:"revenue"`
	Expense     decimal.Decimal `json:"expense"`
	Profit      decimal.Decimal `json:"profit"`
	Months      []MonthBucket   `json:"months"`
	Expenses    []ExpenseLine   `json:"expenses"`
	GeneratedAt time.Time       `json:"generated_at"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
}

// FinanceEngine derives revenue/expense/profit from persisted history. It is
// read-only and runs fully in parallel with the pipelines; slightly stale
// reads are acceptable.
type FinanceEngine struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Zero value falls back to DefaultUnitCostPerKg.
	DefaultUnitCost decimal.Decimal
}

func (e *FinanceEngine) defaultUnitCost() decimal.Decimal {
	if e.DefaultUnitCost.GreaterThan(decimal.Zero) {
		return e.DefaultUnitCost
	}
	return DefaultUnitCostPerKg
}

// BuildReport loads history and computes the aggregate summary, the trailing
// 12-month series and the itemized expense list. Missing reference data
// degrades individual line items; a missing schema degrades to an empty
// report with a diagnostic. Neither aborts the computation.
func (e *FinanceEngine) BuildReport(ctx context.Context) (*FinancialReport, error) {
	ctx, cancel := context.WithTimeout(ctx, reportQueryTimeout)
	defer cancel()

	now := time.Now()

	if !models.HasReportingSchema(e.DB) {
		config.LogError(e.Logger, "financeWorkflow.go", "BuildReport", "SchemaCheck", nil, utils.ErrorSchemaMissing)
		return &FinancialReport{
			Revenue:     decimal.Zero,
			Expense:     decimal.Zero,
			Profit:      decimal.Zero,
			GeneratedAt: now,
			Diagnostics: []string{"reporting tables are missing; returning an empty report"},
		}, nil
	}

	var orders []*models.SalesOrder
	if err := e.DB.WithContext(ctx).
		Where("status IN ?", []models.SalesOrderStatus{
			models.SalesOrderStatusDelivered,
			models.SalesOrderStatusReadyForShipping,
			models.SalesOrderStatusInTransit,
		}).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	var requests []*models.MaterialRequest
	if err := e.DB.WithContext(ctx).
		Where("status IN ? AND supplier_id IS NOT NULL", []models.MaterialRequestStatus{
			models.MaterialRequestStatusCompleted,
			models.MaterialRequestStatusSent,
		}).
		Find(&requests).Error; err != nil {
		return nil, err
	}

	var items []*models.InventoryItem
	priceIndex := map[string]decimal.Decimal{}
	if err := e.DB.WithContext(ctx).Find(&items).Error; err != nil {
		// no inventory reference: every line falls back to the estimate
		config.LogError(e.Logger, "financeWorkflow.go", "BuildReport", "LoadInventory", nil, err)
	} else {
		priceIndex = BuildInventoryPriceIndex(items)
	}

	supplierNames := e.resolveSupplierNames(ctx, requests)

	return ComputeFinancialReport(orders, requests, priceIndex, supplierNames, e.defaultUnitCost(), now), nil
}

// resolveSupplierNames resolves display names in a single batch (dataloader
// when the request carries one, else one IN query). Lookup failures leave
// names blank; they never fail the report.
func (e *FinanceEngine) resolveSupplierNames(ctx context.Context, requests []*models.MaterialRequest) map[int]string {
	ids := make([]int, 0, len(requests))
	for _, r := range requests {
		if r.SupplierId != nil {
			ids = append(ids, *r.SupplierId)
		}
	}
	ids = utils.UniqueSlice(ids)

	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	if loaders := middlewares.For(ctx); loaders != nil {
		profiles, _ := middlewares.GetProfiles(ctx, ids)
		for _, p := range profiles {
			if p != nil {
				names[p.ID] = p.FullName
			}
		}
		return names
	}

	profiles, err := models.GetProfilesByIds(ctx, e.DB, ids)
	if err != nil {
		config.LogError(e.Logger, "financeWorkflow.go", "resolveSupplierNames", "GetProfilesByIds", ids, err)
		return names
	}
	for id, p := range profiles {
		names[id] = p.FullName
	}
	return names
}

// InventoryPriceKey normalizes the (supplier, material, color) lookup key.
func InventoryPriceKey(supplierId int, material, color string) string {
	return fmt.Sprintf("%d|%s|%s", supplierId, utils.NormalizeKey(material), utils.NormalizeKey(color))
}

func BuildInventoryPriceIndex(items []*models.InventoryItem) map[string]decimal.Decimal {
	index := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		key := InventoryPriceKey(item.SupplierId, item.Material, item.Color)
		if _, ok := index[key]; !ok {
			index[key] = item.PricePerKg
		}
	}
	return index
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ComputeFinancialReport is the pure aggregation core: revenue over the
// revenue statuses, expense per supplier-backed request, profit both in
// aggregate and per calendar month (trailing 12 months, buckets only for
// months with data).
func ComputeFinancialReport(
	orders []*models.SalesOrder,
	requests []*models.MaterialRequest,
	priceIndex map[string]decimal.Decimal,
	supplierNames map[int]string,
	defaultUnitCost decimal.Decimal,
	now time.Time,
) *FinancialReport {

	report := &FinancialReport{
		Revenue:     decimal.Zero,
		Expense:     decimal.Zero,
		GeneratedAt: now,
	}

	type bucket struct {
		revenue decimal.Decimal
		expense decimal.Decimal
	}
	buckets := map[string]*bucket{}
	getBucket := func(month string) *bucket {
		b, ok := buckets[month]
		if !ok {
			b = &bucket{revenue: decimal.Zero, expense: decimal.Zero}
			buckets[month] = b
		}
		return b
	}

	for _, order := range orders {
		if !order.Status.CountsAsRevenue() {
			continue
		}
		report.Revenue = report.Revenue.Add(order.TotalPrice)
		b := getBucket(monthKey(order.CreatedAt))
		b.revenue = b.revenue.Add(order.TotalPrice)
	}

	for _, request := range requests {
		if request.SupplierId == nil {
			continue
		}
		if request.Status != models.MaterialRequestStatusCompleted && request.Status != models.MaterialRequestStatusSent {
			continue
		}

		quantity := request.QuantityKg
		if request.QuantitySentKg != nil && request.QuantitySentKg.GreaterThan(decimal.Zero) {
			quantity = *request.QuantitySentKg
		}

		unitCost, ok := priceIndex[InventoryPriceKey(*request.SupplierId, request.Material, request.Color)]
		estimated := false
		if !ok {
			unitCost = defaultUnitCost
			estimated = true
		}
		cost := quantity.Mul(unitCost)

		line := ExpenseLine{
			MaterialRequestId: request.ID,
			SupplierId:        *request.SupplierId,
			SupplierName:      supplierNames[*request.SupplierId],
			Material:          request.Material,
			Color:             request.Color,
			QuantityKg:        quantity,
			UnitCost:          unitCost,
			Cost:              cost,
			IsEstimated:       estimated,
			Month:             monthKey(request.CreatedAt),
		}
		report.Expenses = append(report.Expenses, line)
		report.Expense = report.Expense.Add(cost)
		b := getBucket(line.Month)
		b.expense = b.expense.Add(cost)
	}

	report.Profit = report.Revenue.Sub(report.Expense)

	cutoff := monthKey(now.AddDate(0, -11, 0))
	months := make([]string, 0, len(buckets))
	for month := range buckets {
		if month >= cutoff && month <= monthKey(now) {
			months = append(months, month)
		}
	}
	sort.Strings(months)
	for _, month := range months {
		b := buckets[month]
		report.Months = append(report.Months, MonthBucket{
			Month:   month,
			Revenue: b.revenue,
			Expense: b.expense,
			Profit:  b.revenue.Sub(b.expense),
		})
	}

	return report
}
