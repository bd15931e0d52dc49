package workflow

import (
	"testing"
	"time"

	"github.com/modaflow/atelier_backend/models"
	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func TestComputeFinancialReport_EstimatedExpenseFallback(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	orders := []*models.SalesOrder{
		{ID: 1, TotalPrice: decimal.NewFromInt(1000), Status: models.SalesOrderStatusDelivered, CreatedAt: now},
	}
	requests := []*models.MaterialRequest{
		{
			ID:         10,
			SupplierId: intPtr(5),
			Material:   "cotton",
			Color:      "white",
			QuantityKg: decimal.NewFromInt(2),
			Status:     models.MaterialRequestStatusCompleted,
			CreatedAt:  now,
		},
	}

	report := ComputeFinancialReport(orders, requests, nil, nil, decimal.NewFromInt(500), now)

	if !report.Revenue.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("revenue = %s, expected 1000", report.Revenue)
	}
	if !report.Expense.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expense = %s, expected 1000", report.Expense)
	}
	if !report.Profit.Equal(decimal.Zero) {
		t.Fatalf("profit = %s, expected 0", report.Profit)
	}
	if len(report.Expenses) != 1 {
		t.Fatalf("expected 1 expense line, got %d", len(report.Expenses))
	}
	line := report.Expenses[0]
	if !line.IsEstimated {
		t.Fatalf("line should be marked estimated when no inventory price matches")
	}
	if !line.UnitCost.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unit cost = %s, expected default 500", line.UnitCost)
	}
}

func TestComputeFinancialReport_InventoryPricedExpense(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	items := []*models.InventoryItem{
		{SupplierId: 5, Material: "Cotton ", Color: "WHITE", PricePerKg: decimal.NewFromInt(200)},
	}
	requests := []*models.MaterialRequest{
		{
			ID:         11,
			SupplierId: intPtr(5),
			Material:   "cotton",
			Color:      "white",
			QuantityKg: decimal.NewFromInt(3),
			Status:     models.MaterialRequestStatusSent,
			CreatedAt:  now,
		},
	}

	prices := BuildInventoryPriceIndex(items)
	names := map[int]string{5: "Thread & Co"}
	report := ComputeFinancialReport(nil, requests, prices, names, decimal.NewFromInt(500), now)

	if !report.Expense.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expense = %s, expected 600", report.Expense)
	}
	line := report.Expenses[0]
	if line.IsEstimated {
		t.Fatalf("line should not be estimated when inventory carries a price")
	}
	if line.SupplierName != "Thread & Co" {
		t.Fatalf("supplier name = %q, expected %q", line.SupplierName, "Thread & Co")
	}
	if !report.Profit.Equal(decimal.NewFromInt(-600)) {
		t.Fatalf("profit = %s, expected -600", report.Profit)
	}
}

func TestComputeFinancialReport_PrefersQuantitySent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	requests := []*models.MaterialRequest{
		{
			ID:             12,
			SupplierId:     intPtr(9),
			Material:       "silk",
			Color:          "red",
			QuantityKg:     decimal.NewFromInt(10),
			QuantitySentKg: decPtr(decimal.NewFromInt(4)),
			Status:         models.MaterialRequestStatusCompleted,
			CreatedAt:      now,
		},
	}

	report := ComputeFinancialReport(nil, requests, nil, nil, decimal.NewFromInt(100), now)

	if !report.Expense.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expense = %s, expected 400 (4kg sent * 100)", report.Expense)
	}
	if !report.Expenses[0].QuantityKg.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("quantity = %s, expected the sent quantity 4", report.Expenses[0].QuantityKg)
	}
}

func TestComputeFinancialReport_SkipsNonRevenueAndUnassigned(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	orders := []*models.SalesOrder{
		{ID: 1, TotalPrice: decimal.NewFromInt(700), Status: models.SalesOrderStatusPending, CreatedAt: now},
		{ID: 2, TotalPrice: decimal.NewFromInt(300), Status: models.SalesOrderStatusCancelled, CreatedAt: now},
		{ID: 3, TotalPrice: decimal.NewFromInt(50), Status: models.SalesOrderStatusInTransit, CreatedAt: now},
	}
	requests := []*models.MaterialRequest{
		// no supplier assigned: not an expense
		{ID: 20, Material: "wool", Color: "grey", QuantityKg: decimal.NewFromInt(1), Status: models.MaterialRequestStatusCompleted, CreatedAt: now},
		// not reached sent/completed: not an expense
		{ID: 21, SupplierId: intPtr(3), Material: "wool", Color: "grey", QuantityKg: decimal.NewFromInt(1), Status: models.MaterialRequestStatusInProgress, CreatedAt: now},
		{ID: 22, SupplierId: intPtr(3), Material: "wool", Color: "grey", QuantityKg: decimal.NewFromInt(1), Status: models.MaterialRequestStatusRejected, CreatedAt: now},
	}

	report := ComputeFinancialReport(orders, requests, nil, nil, decimal.NewFromInt(500), now)

	if !report.Revenue.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("revenue = %s, expected 50", report.Revenue)
	}
	if !report.Expense.Equal(decimal.Zero) {
		t.Fatalf("expense = %s, expected 0", report.Expense)
	}
	if len(report.Expenses) != 0 {
		t.Fatalf("expected no expense lines, got %d", len(report.Expenses))
	}
}

func TestComputeFinancialReport_MonthBuckets(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	january := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	march := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	orders := []*models.SalesOrder{
		{ID: 1, TotalPrice: decimal.NewFromInt(100), Status: models.SalesOrderStatusDelivered, CreatedAt: march},
		{ID: 2, TotalPrice: decimal.NewFromInt(200), Status: models.SalesOrderStatusDelivered, CreatedAt: march},
		{ID: 3, TotalPrice: decimal.NewFromInt(50), Status: models.SalesOrderStatusDelivered, CreatedAt: january},
	}
	requests := []*models.MaterialRequest{
		{ID: 30, SupplierId: intPtr(1), Material: "linen", Color: "ecru", QuantityKg: decimal.NewFromInt(1), Status: models.MaterialRequestStatusCompleted, CreatedAt: january},
	}

	report := ComputeFinancialReport(orders, requests, nil, nil, decimal.NewFromInt(40), now)

	if len(report.Months) != 2 {
		t.Fatalf("expected 2 month buckets, got %d", len(report.Months))
	}
	if report.Months[0].Month != "2026-01" || report.Months[1].Month != "2026-03" {
		t.Fatalf("months not ascending: %s, %s", report.Months[0].Month, report.Months[1].Month)
	}
	jan := report.Months[0]
	if !jan.Revenue.Equal(decimal.NewFromInt(50)) || !jan.Expense.Equal(decimal.NewFromInt(40)) || !jan.Profit.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("january bucket = revenue %s expense %s profit %s", jan.Revenue, jan.Expense, jan.Profit)
	}
	mar := report.Months[1]
	if !mar.Revenue.Equal(decimal.NewFromInt(300)) || !mar.Profit.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("march bucket = revenue %s profit %s", mar.Revenue, mar.Profit)
	}
}

func TestComputeFinancialReport_DropsBucketsOlderThanTwelveMonths(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	old := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	orders := []*models.SalesOrder{
		{ID: 1, TotalPrice: decimal.NewFromInt(999), Status: models.SalesOrderStatusDelivered, CreatedAt: old},
		{ID: 2, TotalPrice: decimal.NewFromInt(100), Status: models.SalesOrderStatusDelivered, CreatedAt: now},
	}

	report := ComputeFinancialReport(orders, nil, nil, nil, decimal.NewFromInt(500), now)

	// old revenue still counts in the aggregate
	if !report.Revenue.Equal(decimal.NewFromInt(1099)) {
		t.Fatalf("revenue = %s, expected 1099", report.Revenue)
	}
	if len(report.Months) != 1 {
		t.Fatalf("expected only the current month bucket, got %d", len(report.Months))
	}
	if report.Months[0].Month != "2026-03" {
		t.Fatalf("bucket month = %s, expected 2026-03", report.Months[0].Month)
	}
}

func TestInventoryPriceKey_Normalizes(t *testing.T) {
	a := InventoryPriceKey(5, " Cotton", "WHITE ")
	b := InventoryPriceKey(5, "cotton", "white")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	c := InventoryPriceKey(6, "cotton", "white")
	if a == c {
		t.Fatalf("different suppliers must not collide")
	}
}

func TestBuildInventoryPriceIndex_FirstEntryWins(t *testing.T) {
	items := []*models.InventoryItem{
		{SupplierId: 1, Material: "denim", Color: "indigo", PricePerKg: decimal.NewFromInt(120)},
		{SupplierId: 1, Material: "denim", Color: "indigo", PricePerKg: decimal.NewFromInt(999)},
	}
	index := BuildInventoryPriceIndex(items)
	price := index[InventoryPriceKey(1, "denim", "indigo")]
	if !price.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("price = %s, expected first entry 120", price)
	}
}
