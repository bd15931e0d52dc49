package workflow

import (
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestCatalogDisplayPrice(t *testing.T) {
	cases := []struct {
		in       decimal.Decimal
		expected decimal.Decimal
	}{
		{decimal.NewFromInt(2500), decimal.NewFromInt(2500)},
		{decimal.Zero, DefaultCatalogPrice},
		{decimal.NewFromInt(-10), DefaultCatalogPrice},
	}
	for _, tc := range cases {
		if got := catalogDisplayPrice(tc.in); !got.Equal(tc.expected) {
			t.Fatalf("catalogDisplayPrice(%s) = %s, expected %s", tc.in, got, tc.expected)
		}
	}
}

func TestPickPrimaryImage(t *testing.T) {
	cases := []struct {
		name     string
		images   []models.ProductModelImage
		expected string
	}{
		{
			name:     "no images falls back to placeholder",
			images:   nil,
			expected: placeholderImageUrl,
		},
		{
			name: "first image when none marked primary",
			images: []models.ProductModelImage{
				{ImageUrl: "/a.png"},
				{ImageUrl: "/b.png"},
			},
			expected: "/a.png",
		},
		{
			name: "primary wins over order",
			images: []models.ProductModelImage{
				{ImageUrl: "/a.png", IsPrimary: utils.NewFalse()},
				{ImageUrl: "/b.png", IsPrimary: utils.NewTrue()},
			},
			expected: "/b.png",
		},
	}
	for _, tc := range cases {
		if got := pickPrimaryImage(tc.images); got != tc.expected {
			t.Fatalf("%s: got %q, expected %q", tc.name, got, tc.expected)
		}
	}
}

func TestDeriveCatalogProduct_RepeatApprovalKeepsOneProduct(t *testing.T) {
	existing := &models.Product{ID: 9, ProductModelId: 42}
	creates := 0

	got, err := resolveSingleton(
		func() (*models.Product, error) { return existing, nil },
		func() (*models.Product, error) { creates++; return &models.Product{}, nil },
	)
	if err != nil {
		t.Fatalf("re-derivation should reuse the existing product: %v", err)
	}
	if got != existing {
		t.Fatalf("expected the existing catalog product back, got %+v", got)
	}
	if creates != 0 {
		t.Fatalf("no insert should run when the product already exists (creates = %d)", creates)
	}
}

func TestDeriveCatalogProduct_DuplicateKeyResolvesToWinner(t *testing.T) {
	winner := &models.Product{ID: 10, ProductModelId: 42}
	finds, creates := 0, 0

	got, err := resolveSingleton(
		func() (*models.Product, error) {
			finds++
			if finds == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return winner, nil
		},
		func() (*models.Product, error) {
			creates++
			return nil, &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry '42' for key 'products.product_model_id'"}
		},
	)
	if err != nil {
		t.Fatalf("losing the insert race should still yield the winner's product: %v", err)
	}
	if got != winner {
		t.Fatalf("expected the winner's product, got %+v", got)
	}
	if creates != 1 || finds != 2 {
		t.Fatalf("creates = %d finds = %d, expected one insert attempt and a re-read", creates, finds)
	}
}
