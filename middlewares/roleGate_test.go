package middlewares

import (
	"context"
	"errors"
	"testing"

	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
)

func identityCtx(userId int, rawRole string) context.Context {
	ctx := utils.SetUserIdInContext(context.Background(), userId)
	ctx = utils.SetRawRoleInContext(ctx, rawRole)
	role, ok := models.ParseRole(rawRole)
	if ok {
		ctx = utils.SetRoleInContext(ctx, string(role))
		ctx = utils.SetIsSuperadminInContext(ctx, role.IsSuperuser())
	}
	return ctx
}

func TestAuthorize_NoIdentity(t *testing.T) {
	err := Authorize(context.Background(), models.RoleDesigner)
	if !errors.Is(err, utils.ErrorUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestAuthorize_RoleMatch(t *testing.T) {
	ctx := identityCtx(1, "supplier")
	if err := Authorize(ctx, models.RoleSupplier); err != nil {
		t.Fatalf("supplier should pass a supplier gate: %v", err)
	}
	if err := Authorize(ctx, models.RoleDesigner, models.RoleSupplier); err != nil {
		t.Fatalf("supplier should pass a multi-role gate that includes it: %v", err)
	}
}

func TestAuthorize_NormalizesStoredRole(t *testing.T) {
	ctx := identityCtx(1, " Supplier ")
	if err := Authorize(ctx, models.RoleSupplier); err != nil {
		t.Fatalf("whitespace/case in the stored role must not matter: %v", err)
	}
}

func TestAuthorize_SuperadminBypassesEveryGate(t *testing.T) {
	ctx := identityCtx(99, "superadmin")
	if err := Authorize(ctx, models.RoleDesigner); err != nil {
		t.Fatalf("superadmin should bypass a designer gate: %v", err)
	}
	if err := Authorize(ctx); err != nil {
		t.Fatalf("superadmin should pass even an empty allowed set: %v", err)
	}
}

func TestAuthorize_ForbiddenCarriesDiagnostics(t *testing.T) {
	ctx := identityCtx(5, "Lab ")
	err := Authorize(ctx, models.RoleAccountant)
	var forbidden *utils.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if forbidden.RawRole != "Lab " {
		t.Fatalf("raw role = %q, expected the stored value untouched", forbidden.RawRole)
	}
	if forbidden.NormalizedRole != "lab" {
		t.Fatalf("normalized role = %q, expected %q", forbidden.NormalizedRole, "lab")
	}
	if len(forbidden.Allowed) != 1 || forbidden.Allowed[0] != "accountant" {
		t.Fatalf("allowed = %v, expected [accountant]", forbidden.Allowed)
	}
}

func TestAuthorize_UnknownRoleIsForbidden(t *testing.T) {
	ctx := identityCtx(5, "intern")
	err := Authorize(ctx, models.RoleDesigner)
	var forbidden *utils.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError for unknown role, got %v", err)
	}
}
