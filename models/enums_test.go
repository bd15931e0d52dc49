package models

import "testing"

func TestParseRole_NormalizesCaseAndWhitespace(t *testing.T) {
	cases := []struct {
		in       string
		expected Role
		ok       bool
	}{
		{"designer", RoleDesigner, true},
		{"SUPERADMIN ", RoleSuperadmin, true},
		{" Manufacturer", RoleManufacturer, true},
		{"Lab", RoleLab, true},
		{"intern", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		role, ok := ParseRole(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseRole(%q) ok = %v, expected %v", tc.in, ok, tc.ok)
		}
		if ok && role != tc.expected {
			t.Fatalf("ParseRole(%q) = %q, expected %q", tc.in, role, tc.expected)
		}
	}
}

func TestRoleIsSuperuser(t *testing.T) {
	if !RoleSuperadmin.IsSuperuser() {
		t.Fatalf("superadmin should be a superuser")
	}
	for _, r := range []Role{RoleDesigner, RoleSupplier, RoleManufacturer, RoleTester, RoleLab, RoleAccountant} {
		if r.IsSuperuser() {
			t.Fatalf("%q should not be a superuser", r)
		}
	}
}

func TestDevelopmentStageTransitions(t *testing.T) {
	cases := []struct {
		from    DevelopmentStage
		to      DevelopmentStage
		allowed bool
	}{
		{DevelopmentStageIdea, DevelopmentStagePrototype, true},
		{DevelopmentStagePrototype, DevelopmentStageTesting, true},
		{DevelopmentStageTesting, DevelopmentStageApproved, true},
		{DevelopmentStageIdea, DevelopmentStageTesting, false},
		{DevelopmentStageIdea, DevelopmentStageApproved, false},
		{DevelopmentStagePrototype, DevelopmentStageIdea, false},
		{DevelopmentStageApproved, DevelopmentStageTesting, false},
		{DevelopmentStageApproved, DevelopmentStageIdea, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s = %v, expected %v", tc.from, tc.to, got, tc.allowed)
		}
	}
	if !DevelopmentStageApproved.IsTerminal() {
		t.Fatalf("approved should be terminal")
	}
	if DevelopmentStageTesting.IsTerminal() {
		t.Fatalf("testing should not be terminal")
	}
}

func TestMaterialRequestTransitions(t *testing.T) {
	cases := []struct {
		from    MaterialRequestStatus
		to      MaterialRequestStatus
		allowed bool
	}{
		{MaterialRequestStatusNew, MaterialRequestStatusInProgress, true},
		{MaterialRequestStatusNew, MaterialRequestStatusRejected, true},
		// sending requires an explicit accept first
		{MaterialRequestStatusNew, MaterialRequestStatusSent, false},
		{MaterialRequestStatusInProgress, MaterialRequestStatusSent, true},
		{MaterialRequestStatusInProgress, MaterialRequestStatusRejected, true},
		{MaterialRequestStatusSent, MaterialRequestStatusCompleted, true},
		{MaterialRequestStatusNew, MaterialRequestStatusCompleted, false},
		{MaterialRequestStatusSent, MaterialRequestStatusRejected, false},
		{MaterialRequestStatusSent, MaterialRequestStatusInProgress, false},
		{MaterialRequestStatusInProgress, MaterialRequestStatusNew, false},
		{MaterialRequestStatusRejected, MaterialRequestStatusNew, false},
		{MaterialRequestStatusCompleted, MaterialRequestStatusSent, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s = %v, expected %v", tc.from, tc.to, got, tc.allowed)
		}
	}
	if !MaterialRequestStatusRejected.IsTerminal() {
		t.Fatalf("rejected should be terminal")
	}
	if !MaterialRequestStatusCompleted.IsTerminal() {
		t.Fatalf("completed should be terminal")
	}
}

func TestShipmentStatusIsOpen(t *testing.T) {
	open := []ShipmentStatus{ShipmentStatusSentToManufacturer, ShipmentStatusReceived}
	closed := []ShipmentStatus{ShipmentStatusConfirmed, ShipmentStatusProblemReported}
	for _, s := range open {
		if !s.IsOpen() {
			t.Fatalf("%q should be open", s)
		}
	}
	for _, s := range closed {
		if s.IsOpen() {
			t.Fatalf("%q should be closed", s)
		}
	}
}

func TestSewingOrderTransitions(t *testing.T) {
	cases := []struct {
		from    SewingOrderStatus
		to      SewingOrderStatus
		allowed bool
	}{
		{SewingOrderStatusNew, SewingOrderStatusInProgress, true},
		{SewingOrderStatusNew, SewingOrderStatusCompleted, true},
		{SewingOrderStatusInProgress, SewingOrderStatusCompleted, true},
		{SewingOrderStatusInProgress, SewingOrderStatusNew, false},
		{SewingOrderStatusCompleted, SewingOrderStatusInProgress, false},
		{SewingOrderStatusCompleted, SewingOrderStatusNew, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s = %v, expected %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestSalesOrderCountsAsRevenue(t *testing.T) {
	cases := []struct {
		status   SalesOrderStatus
		expected bool
	}{
		{SalesOrderStatusDelivered, true},
		{SalesOrderStatusReadyForShipping, true},
		{SalesOrderStatusInTransit, true},
		{SalesOrderStatusPending, false},
		{SalesOrderStatusCancelled, false},
	}
	for _, tc := range cases {
		if got := tc.status.CountsAsRevenue(); got != tc.expected {
			t.Fatalf("CountsAsRevenue(%q) = %v, expected %v", tc.status, got, tc.expected)
		}
	}
}

func TestSewingOrderOpenKey(t *testing.T) {
	if got := SewingOrderOpenKey(42, 7); got != "42:7" {
		t.Fatalf("SewingOrderOpenKey(42, 7) = %q, expected %q", got, "42:7")
	}
}
